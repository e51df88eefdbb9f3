package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

// DefaultLimit is the number of hits returned when the caller passes 0.
const DefaultLimit = 20

// Hit is one matching book.
type Hit struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Author  string   `json:"author,omitempty"`
	Note    string   `json:"note,omitempty"`
	Shelves []string `json:"shelves"`
	Score   float64  `json:"score"`
}

// Search matches query against titles, authors and notes. Title matches
// rank first; a one-letter typo in a title still matches.
func (x *Index) Search(ctx context.Context, q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, domainerrors.Validation("search query cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(q), limit, 0, false)
	req.Fields = []string{"key", "title", "author", "note", "shelves"}
	req.SortBy([]string{"-_score", "_id"})

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Key: h.ID, Score: h.Score}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["author"].(string); ok {
			hit.Author = v
		}
		if v, ok := h.Fields["note"].(string); ok {
			hit.Note = v
		}
		hit.Shelves = stringList(h.Fields["shelves"])
		hits = append(hits, hit)
	}
	return hits, nil
}

func buildSearchQuery(q string) query.Query {
	title := bleve.NewMatchQuery(q)
	title.SetField("title")
	title.SetBoost(3.0)

	author := bleve.NewMatchQuery(q)
	author.SetField("author")
	author.SetBoost(2.0)

	note := bleve.NewMatchQuery(q)
	note.SetField("note")

	queries := []query.Query{title, author, note}

	lower := strings.ToLower(q)
	if !strings.ContainsAny(lower, " \t") {
		fuzzy := bleve.NewFuzzyQuery(lower)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)
		queries = append(queries, fuzzy)

		if len(lower) >= 2 {
			prefix := bleve.NewPrefixQuery(lower)
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			queries = append(queries, prefix)
		}
	}

	return bleve.NewDisjunctionQuery(queries...)
}

// stringList reads a stored field that Bleve returns as a string when it
// holds one value and as a slice when it holds several.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
