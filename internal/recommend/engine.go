// Package recommend derives reading suggestions from the authors a reader
// has favorited or viewed. It is a co-occurrence heuristic, not a model.
package recommend

import (
	"context"
	"log/slog"
	"strings"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/logger"
)

const (
	// DefaultLimit is the result size when callers pass a non-positive limit.
	DefaultLimit = 10

	// Each author costs one catalog round trip.
	maxAuthors     = 5
	booksPerAuthor = 5
)

// AuthorSearcher finds books by author. *catalog.Client implements it.
type AuthorSearcher interface {
	SearchByAuthor(ctx context.Context, author string, limit int) ([]domain.Book, error)
}

// Result is a recommendation run. FailedAuthors lists authors whose lookup
// failed; their books are simply missing from Books.
type Result struct {
	Books         []domain.Book
	Authors       []string
	FailedAuthors []string
}

// Engine produces recommendations.
type Engine struct {
	catalog AuthorSearcher
	logger  *slog.Logger
}

// NewEngine creates an engine backed by catalog.
func NewEngine(catalog AuthorSearcher, log *slog.Logger) *Engine {
	return &Engine{catalog: catalog, logger: logger.OrDiscard(log)}
}

// Recommend suggests up to limit books by the first few authors found in
// favorites then recent, excluding books already in either list.
//
// With no known authors it returns NO_SIGNAL without touching the network.
// A failed author lookup is logged and skipped; it never fails the run.
func (e *Engine) Recommend(ctx context.Context, favorites, recent []domain.Book, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	authors := Authors(favorites, recent)
	if len(authors) == 0 {
		return nil, domainerrors.NoSignal("Favorite or view a few books to get recommendations")
	}

	seen := make(map[string]struct{}, len(favorites)+len(recent))
	for _, b := range favorites {
		seen[b.Key] = struct{}{}
	}
	for _, b := range recent {
		seen[b.Key] = struct{}{}
	}

	res := &Result{
		Books:   make([]domain.Book, 0, limit),
		Authors: authors[:min(len(authors), maxAuthors)],
	}

	for _, author := range res.Authors {
		if len(res.Books) >= limit {
			break
		}

		books, err := e.catalog.SearchByAuthor(ctx, author, booksPerAuthor)
		if err != nil {
			e.logger.Warn("author lookup failed, skipping", "author", author, "error", err)
			res.FailedAuthors = append(res.FailedAuthors, author)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		for _, b := range books {
			if len(res.Books) >= limit {
				break
			}
			if _, dup := seen[b.Key]; dup {
				continue
			}
			seen[b.Key] = struct{}{}
			res.Books = append(res.Books, b)
		}
	}

	e.logger.Debug("recommendations ready",
		"authors", len(res.Authors),
		"failed", len(res.FailedAuthors),
		"count", len(res.Books),
	)
	return res, nil
}

// Authors returns the distinct author names across the lists in discovery
// order: each list in turn, each book's authors in order.
func Authors(lists ...[]domain.Book) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, b := range list {
			for _, a := range b.AuthorName {
				a = strings.TrimSpace(a)
				if a == "" {
					continue
				}
				if _, dup := seen[a]; dup {
					continue
				}
				seen[a] = struct{}{}
				out = append(out, a)
			}
		}
	}
	return out
}
