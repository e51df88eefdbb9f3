package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/morashelf/morashelf-core/internal/domain"
	"github.com/morashelf/morashelf-core/internal/events"
	"github.com/morashelf/morashelf-core/internal/kv"
)

// RecentlyViewed is the most-recent-first list of viewed books, unique by
// key and capped.
type RecentlyViewed struct {
	mu       sync.Mutex
	items    []domain.Book
	hydrated bool
	early    bool
	cap      int
	preview  int

	store   kv.Store
	persist *persister
	emitter events.Emitter
	logger  *slog.Logger
}

// NewRecentlyViewed creates an empty, unhydrated recently viewed store.
func NewRecentlyViewed(store kv.Store, opts Options) *RecentlyViewed {
	opts = opts.withDefaults()
	log := opts.Logger.With("store", "recent")
	return &RecentlyViewed{
		items:   []domain.Book{},
		cap:     opts.RecentCap,
		preview: opts.RecentPreview,
		store:   store,
		persist: newPersister(store, RecentlyViewedKey, opts.PersistDelay, log),
		emitter: opts.Emitter,
		logger:  log,
	}
}

// Hydrate replaces the in-memory list with the stored one, truncated to
// the cap. Lists written before the cap existed may be longer.
func (r *RecentlyViewed) Hydrate(ctx context.Context) error {
	books, _ := kv.LoadJSON[[]domain.Book](ctx, r.store, RecentlyViewedKey, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()

	books = sanitizeBooks(books)
	if len(books) > r.cap {
		r.logger.Info("truncating stored history to cap", "stored", len(books), "cap", r.cap)
		books = books[:r.cap]
	}
	r.items = books
	r.hydrated = true
	if r.early {
		r.early = false
		r.publish()
	} else {
		r.emitter.Emit(events.NewRecentChangedEvent(domain.CloneBooks(r.items)))
	}
	return ctx.Err()
}

// Record moves book to the front, removing any earlier entry with the same
// key, and drops entries past the cap.
func (r *RecentlyViewed) Record(book domain.Book) error {
	if err := validateBook(book); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hydrated {
		r.logger.Warn("mutation before hydration, starting from empty state")
		r.hydrated = true
		r.early = true
	}

	next := make([]domain.Book, 0, min(len(r.items)+1, r.cap))
	next = append(next, book.Clone())
	for _, b := range r.items {
		if len(next) == r.cap {
			break
		}
		if b.Key != book.Key {
			next = append(next, b)
		}
	}
	r.items = next

	r.publish()
	return nil
}

// Items returns a copy of the full list, most recent first.
func (r *RecentlyViewed) Items() []domain.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneBooks(r.items)
}

// Preview returns the first few entries for the profile screen.
func (r *RecentlyViewed) Preview() []domain.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneBooks(r.items[:min(len(r.items), r.preview)])
}

// Flush blocks until the latest snapshot is written.
func (r *RecentlyViewed) Flush(ctx context.Context) error {
	return r.persist.flush(ctx)
}

// Close flushes and stops the background writer.
func (r *RecentlyViewed) Close(ctx context.Context) error {
	return r.persist.close(ctx)
}

func (r *RecentlyViewed) publish() {
	snapshot := domain.CloneBooks(r.items)
	r.emitter.Emit(events.NewRecentChangedEvent(snapshot))
	if data, ok := marshalSnapshot(r.logger, snapshot); ok {
		r.persist.schedule(data)
	}
}
