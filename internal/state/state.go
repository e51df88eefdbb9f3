// Package state holds the domain stores: favorites, recently viewed, notes
// and the session. Each store owns one key in the key-value store, mutates
// its in-memory state synchronously under its own lock, emits a snapshot
// event, and persists in the background.
package state

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/events"
	"github.com/morashelf/morashelf-core/internal/logger"
)

// Storage keys, one per store.
const (
	SessionKey        = "@user_session"
	FavoritesKey      = "@user_favorites"
	RecentlyViewedKey = "@recently_viewed"
	NotesKey          = "@user_book_notes"
)

// Defaults for Options.
const (
	DefaultRecentCap     = 50
	DefaultRecentPreview = 5
	DefaultPersistDelay  = 250 * time.Millisecond
)

// Options are shared by every store constructor. Zero values take defaults.
type Options struct {
	Emitter      events.Emitter
	Logger       *slog.Logger
	PersistDelay time.Duration
	// Clock stamps note updates.
	Clock         func() time.Time
	RecentCap     int
	RecentPreview int
}

func (o Options) withDefaults() Options {
	if o.Emitter == nil {
		o.Emitter = events.NoopEmitter{}
	}
	o.Logger = logger.OrDiscard(o.Logger)
	if o.PersistDelay < 0 {
		o.PersistDelay = 0
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.RecentCap <= 0 {
		o.RecentCap = DefaultRecentCap
	}
	if o.RecentPreview <= 0 {
		o.RecentPreview = DefaultRecentPreview
	}
	if o.RecentPreview > o.RecentCap {
		o.RecentPreview = o.RecentCap
	}
	return o
}

func validateBook(book domain.Book) error {
	if strings.TrimSpace(book.Key) == "" {
		return domainerrors.Validation("book key cannot be empty")
	}
	return nil
}

// sanitizeBooks drops keyless and duplicate entries from hydrated state,
// keeping the first occurrence of each key.
func sanitizeBooks(books []domain.Book) []domain.Book {
	out := make([]domain.Book, 0, len(books))
	seen := make(map[string]struct{}, len(books))
	for _, b := range books {
		if strings.TrimSpace(b.Key) == "" {
			continue
		}
		if _, dup := seen[b.Key]; dup {
			continue
		}
		seen[b.Key] = struct{}{}
		out = append(out, b)
	}
	return out
}

// marshalSnapshot encodes v for the persister. The store types always
// encode, so a failure is logged rather than surfaced.
func marshalSnapshot(log *slog.Logger, v any) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to encode snapshot", "error", err)
		return nil, false
	}
	return data, true
}
