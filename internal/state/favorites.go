package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/morashelf/morashelf-core/internal/domain"
	"github.com/morashelf/morashelf-core/internal/events"
	"github.com/morashelf/morashelf-core/internal/kv"
)

// Favorites is the ordered set of favorited books. New favorites append.
type Favorites struct {
	mu       sync.Mutex
	items    []domain.Book
	hydrated bool

	// early is set when a mutation ran before Hydrate scheduled a write.
	early bool

	store   kv.Store
	persist *persister
	emitter events.Emitter
	logger  *slog.Logger
}

// NewFavorites creates an empty, unhydrated favorites store.
func NewFavorites(store kv.Store, opts Options) *Favorites {
	opts = opts.withDefaults()
	log := opts.Logger.With("store", "favorites")
	return &Favorites{
		items:   []domain.Book{},
		store:   store,
		persist: newPersister(store, FavoritesKey, opts.PersistDelay, log),
		emitter: opts.Emitter,
		logger:  log,
	}
}

// Hydrate replaces the in-memory list with the stored one. Missing or
// corrupt state hydrates as empty.
func (f *Favorites) Hydrate(ctx context.Context) error {
	books, _ := kv.LoadJSON[[]domain.Book](ctx, f.store, FavoritesKey, f.logger)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = sanitizeBooks(books)
	f.hydrated = true
	if f.early {
		// Replace the pre-hydration write so storage matches memory.
		f.early = false
		f.publish()
	} else {
		f.emitter.Emit(events.NewFavoritesChangedEvent(domain.CloneBooks(f.items)))
	}
	f.logger.Debug("hydrated", "count", len(f.items))
	return ctx.Err()
}

// Toggle removes book if it is a favorite and appends it otherwise.
// It reports whether the book is a favorite afterwards.
func (f *Favorites) Toggle(book domain.Book) (bool, error) {
	if err := validateBook(book); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureHydrated()

	var added bool
	next := make([]domain.Book, 0, len(f.items)+1)
	if idx := domain.IndexOf(f.items, book.Key); idx >= 0 {
		next = append(next, f.items[:idx]...)
		next = append(next, f.items[idx+1:]...)
	} else {
		next = append(next, f.items...)
		next = append(next, book.Clone())
		added = true
	}
	f.items = next

	f.publish()
	return added, nil
}

// Contains reports whether key is a favorite.
func (f *Favorites) Contains(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.IndexOf(f.items, key) >= 0
}

// Items returns a copy of the favorites in insertion order.
func (f *Favorites) Items() []domain.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.CloneBooks(f.items)
}

// Flush blocks until the latest snapshot is written.
func (f *Favorites) Flush(ctx context.Context) error {
	return f.persist.flush(ctx)
}

// Close flushes and stops the background writer.
func (f *Favorites) Close(ctx context.Context) error {
	return f.persist.close(ctx)
}

// publish emits and schedules the current snapshot. Callers hold mu, which
// keeps events and writes in mutation order.
func (f *Favorites) publish() {
	snapshot := domain.CloneBooks(f.items)
	f.emitter.Emit(events.NewFavoritesChangedEvent(snapshot))
	if data, ok := marshalSnapshot(f.logger, snapshot); ok {
		f.persist.schedule(data)
	}
}

func (f *Favorites) ensureHydrated() {
	if !f.hydrated {
		f.logger.Warn("mutation before hydration, starting from empty state")
		f.hydrated = true
		f.early = true
	}
}
