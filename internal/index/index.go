// Package index keeps an in-memory full-text index over the reader's own
// books: favorites, reading history and notes. It answers "where did I see
// that book" without touching the network.
//
// The stores stay the source of truth. The index is rebuilt from their
// snapshots at startup and updated by the orchestrator after each mutation,
// so it never needs its own persistence.
package index

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/morashelf/morashelf-core/internal/domain"
	"github.com/morashelf/morashelf-core/internal/logger"
)

// Shelf names where a book was found.
type Shelf string

const (
	ShelfFavorites Shelf = "favorites"
	ShelfRecent    Shelf = "recent"
	ShelfNotes     Shelf = "notes"
)

// Index wraps a memory-only Bleve index.
//
// Thread safety: all methods are safe for concurrent use. mu guards both the
// shelf snapshots and the set of indexed keys so a reindex sees a consistent
// view.
type Index struct {
	index  bleve.Index
	logger *slog.Logger

	mu      sync.Mutex
	books   map[Shelf][]domain.Book
	notes   map[string]domain.Note
	indexed map[string]struct{}
}

// New creates an empty index.
func New(log *slog.Logger) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{
		index:   idx,
		logger:  logger.OrDiscard(log).With("component", "index"),
		books:   make(map[Shelf][]domain.Book),
		notes:   make(map[string]domain.Note),
		indexed: make(map[string]struct{}),
	}, nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.index.Close()
}

// SetBooks replaces the snapshot of one book shelf and reindexes.
func (x *Index) SetBooks(shelf Shelf, books []domain.Book) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.books[shelf] = domain.CloneBooks(books)
	return x.reindex()
}

// SetNotes replaces the notes snapshot and reindexes.
func (x *Index) SetNotes(notes map[string]domain.Note) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.notes = make(map[string]domain.Note, len(notes))
	for k, n := range notes {
		x.notes[k] = n
	}
	return x.reindex()
}

// Count returns the number of indexed books.
func (x *Index) Count() (uint64, error) {
	return x.index.DocCount()
}

// reindex merges the snapshots into one document per book key, indexes
// them in a single batch and deletes keys that left every shelf. Callers
// hold mu.
func (x *Index) reindex() error {
	docs := x.documents()

	batch := x.index.NewBatch()
	for key, doc := range docs {
		if err := batch.Index(key, doc.toMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", key, err)
		}
	}
	var removed int
	for key := range x.indexed {
		if _, ok := docs[key]; !ok {
			batch.Delete(key)
			removed++
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	x.indexed = make(map[string]struct{}, len(docs))
	for key := range docs {
		x.indexed[key] = struct{}{}
	}
	x.logger.Debug("reindexed", "documents", len(docs), "removed", removed)
	return nil
}

func (x *Index) documents() map[string]*document {
	docs := make(map[string]*document)
	get := func(key string) *document {
		d, ok := docs[key]
		if !ok {
			d = &document{Key: key}
			docs[key] = d
		}
		return d
	}

	for _, shelf := range []Shelf{ShelfFavorites, ShelfRecent} {
		for _, b := range x.books[shelf] {
			d := get(b.Key)
			if d.Title == "" {
				d.Title = b.Title
				d.Author = b.Authors()
				d.Year = b.FirstPublishYear
			}
			d.addShelf(shelf)
		}
	}
	for key, n := range x.notes {
		d := get(key)
		d.Note = n.Text
		d.addShelf(ShelfNotes)
	}
	return docs
}

// document is one indexed book.
type document struct {
	Key     string
	Title   string
	Author  string
	Note    string
	Year    *int
	Shelves []string
}

func (d *document) addShelf(s Shelf) {
	if !slices.Contains(d.Shelves, string(s)) {
		d.Shelves = append(d.Shelves, string(s))
	}
}

// toMap converts to the field names used by the mapping.
func (d *document) toMap() map[string]any {
	m := map[string]any{
		"key":     d.Key,
		"title":   d.Title,
		"author":  d.Author,
		"note":    d.Note,
		"shelves": d.Shelves,
	}
	if d.Year != nil {
		m["year"] = float64(*d.Year)
	}
	return m
}
