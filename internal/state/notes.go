package state

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/events"
	"github.com/morashelf/morashelf-core/internal/kv"
)

// Notes maps book keys to the reader's note, one per book, last write wins.
// Notes are independent of the book lists and outlive removal from them.
type Notes struct {
	mu       sync.Mutex
	items    map[string]domain.Note
	hydrated bool
	early    bool
	clock    func() time.Time

	store   kv.Store
	persist *persister
	emitter events.Emitter
	logger  *slog.Logger
}

// NewNotes creates an empty, unhydrated notes store.
func NewNotes(store kv.Store, opts Options) *Notes {
	opts = opts.withDefaults()
	log := opts.Logger.With("store", "notes")
	return &Notes{
		items:   make(map[string]domain.Note),
		clock:   opts.Clock,
		store:   store,
		persist: newPersister(store, NotesKey, opts.PersistDelay, log),
		emitter: opts.Emitter,
		logger:  log,
	}
}

// Hydrate replaces the in-memory notes with the stored ones. Entries with
// blank text are dropped.
func (n *Notes) Hydrate(ctx context.Context) error {
	stored, _ := kv.LoadJSON[map[string]domain.Note](ctx, n.store, NotesKey, n.logger)

	n.mu.Lock()
	defer n.mu.Unlock()

	items := make(map[string]domain.Note, len(stored))
	for key, note := range stored {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(note.Text) == "" {
			continue
		}
		note.BookKey = key
		items[key] = note
	}
	n.items = items
	n.hydrated = true
	if n.early {
		n.early = false
		n.publish()
	} else {
		n.emitter.Emit(events.NewNotesChangedEvent(maps.Clone(n.items)))
	}
	return ctx.Err()
}

// Upsert sets the note for bookKey and stamps it with the current time.
// Blank text is rejected and leaves state unchanged.
func (n *Notes) Upsert(bookKey, text string) (domain.Note, error) {
	if strings.TrimSpace(bookKey) == "" {
		return domain.Note{}, domainerrors.Validation("book key cannot be empty")
	}
	if strings.TrimSpace(text) == "" {
		return domain.Note{}, domainerrors.EmptyNoteRejected("Note text cannot be empty")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.ensureHydrated()

	note := domain.Note{BookKey: bookKey, Text: text, UpdatedAt: n.clock().UTC()}
	n.items[bookKey] = note
	n.publish()
	return note, nil
}

// Delete removes the note for bookKey. Deleting an absent note is a no-op
// and reports false.
func (n *Notes) Delete(bookKey string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ensureHydrated()

	if _, ok := n.items[bookKey]; !ok {
		return false
	}
	delete(n.items, bookKey)
	n.publish()
	return true
}

// Get returns the note for bookKey.
func (n *Notes) Get(bookKey string) (domain.Note, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	note, ok := n.items[bookKey]
	return note, ok
}

// All returns a copy of every note keyed by book key.
func (n *Notes) All() map[string]domain.Note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return maps.Clone(n.items)
}

// Flush blocks until the latest snapshot is written.
func (n *Notes) Flush(ctx context.Context) error {
	return n.persist.flush(ctx)
}

// Close flushes and stops the background writer.
func (n *Notes) Close(ctx context.Context) error {
	return n.persist.close(ctx)
}

func (n *Notes) publish() {
	snapshot := maps.Clone(n.items)
	n.emitter.Emit(events.NewNotesChangedEvent(snapshot))
	if data, ok := marshalSnapshot(n.logger, snapshot); ok {
		n.persist.schedule(data)
	}
}

func (n *Notes) ensureHydrated() {
	if !n.hydrated {
		n.logger.Warn("mutation before hydration, starting from empty state")
		n.hydrated = true
		n.early = true
	}
}
