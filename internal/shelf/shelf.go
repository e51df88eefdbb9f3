// Package shelf composes the domain stores, clients and recommendation
// engine into the single state tree the presentation layer talks to.
//
// Everything is passed in through Deps; there is no package-level state.
// Callers issue operations on a *Shelf and observe changes either through
// the read accessors or by subscribing to events.
package shelf

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/morashelf/morashelf-core/internal/catalog"
	"github.com/morashelf/morashelf-core/internal/domain"
	"github.com/morashelf/morashelf-core/internal/events"
	"github.com/morashelf/morashelf-core/internal/index"
	"github.com/morashelf/morashelf-core/internal/logger"
	"github.com/morashelf/morashelf-core/internal/recommend"
	"github.com/morashelf/morashelf-core/internal/state"
)

// Catalog is the subset of *catalog.Client the shelf uses.
type Catalog interface {
	SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error)
	CoverURL(coverID *int, size catalog.CoverSize) (string, bool)
}

// Authenticator is the subset of *auth.Client the shelf uses.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*domain.User, error)
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
}

// Recommender is the subset of *recommend.Engine the shelf uses.
type Recommender interface {
	Recommend(ctx context.Context, favorites, recent []domain.Book, limit int) (*recommend.Result, error)
}

// Deps are the collaborators a Shelf is built from.
type Deps struct {
	Catalog     Catalog
	Auth        Authenticator
	Recommender Recommender

	Session   *state.Session
	Favorites *state.Favorites
	Recent    *state.RecentlyViewed
	Notes     *state.Notes

	// Index, when set, is kept in step with the stores for SearchLibrary.
	Index *index.Index

	// Bus receives search and lifecycle events. The stores should be
	// built with the same bus as their emitter.
	Bus    *events.Bus
	Logger *slog.Logger

	SearchLimit    int
	RecommendLimit int
}

// Shelf is the process-wide state tree.
type Shelf struct {
	catalog     Catalog
	auth        Authenticator
	recommender Recommender

	session   *state.Session
	favorites *state.Favorites
	recent    *state.RecentlyViewed
	notes     *state.Notes

	index   *index.Index
	indexMu sync.Mutex

	bus    *events.Bus
	logger *slog.Logger

	searchLimit    int
	recommendLimit int

	hydrateOnce sync.Once
	hydrateErr  error
	ready       chan struct{}

	searchSeq  atomic.Uint64
	searchMu   sync.Mutex
	lastSearch *SearchResult
}

// New creates a Shelf. It does not hydrate; call Hydrate once at startup.
func New(d Deps) *Shelf {
	if d.SearchLimit <= 0 {
		d.SearchLimit = catalog.DefaultLimit
	}
	if d.RecommendLimit <= 0 {
		d.RecommendLimit = recommend.DefaultLimit
	}
	return &Shelf{
		catalog:        d.Catalog,
		auth:           d.Auth,
		recommender:    d.Recommender,
		session:        d.Session,
		favorites:      d.Favorites,
		recent:         d.Recent,
		notes:          d.Notes,
		index:          d.Index,
		bus:            d.Bus,
		logger:         logger.OrDiscard(d.Logger),
		searchLimit:    d.SearchLimit,
		recommendLimit: d.RecommendLimit,
		ready:          make(chan struct{}),
	}
}

// Hydrate restores every store from storage, concurrently, exactly once.
// Ready is closed as soon as the session and favorites have settled; the
// remaining stores finish before Hydrate returns. Later calls return the
// first call's result.
func (s *Shelf) Hydrate(ctx context.Context) error {
	s.hydrateOnce.Do(func() {
		var gate sync.WaitGroup
		gate.Add(2)
		go func() {
			gate.Wait()
			close(s.ready)
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer gate.Done()
			return s.session.Hydrate(gctx)
		})
		g.Go(func() error {
			defer gate.Done()
			return s.favorites.Hydrate(gctx)
		})
		g.Go(func() error { return s.recent.Hydrate(gctx) })
		g.Go(func() error { return s.notes.Hydrate(gctx) })

		s.hydrateErr = g.Wait()
		if s.hydrateErr != nil {
			s.logger.Warn("hydration interrupted", "error", s.hydrateErr)
		}

		s.reindexAll()

		s.logger.Info("library ready",
			"signed_in", s.session.Current() != nil,
			"favorites", len(s.favorites.Items()),
			"recent", len(s.recent.Items()),
			"notes", len(s.notes.All()),
		)
		s.emit(events.NewLibraryReadyEvent())
	})
	return s.hydrateErr
}

// Ready is closed once the session and favorites have been hydrated.
func (s *Shelf) Ready() <-chan struct{} {
	return s.ready
}

// Subscribe registers for state change events of the given types, or all
// types when none are given.
func (s *Shelf) Subscribe(types ...events.EventType) *events.Subscription {
	return s.bus.Subscribe(types...)
}

// Unsubscribe ends a subscription.
func (s *Shelf) Unsubscribe(id string) {
	s.bus.Unsubscribe(id)
}

// Close writes out any pending store snapshots and stops the background
// writers. It does not shut down the bus, which the caller owns.
func (s *Shelf) Close(ctx context.Context) error {
	return errors.Join(
		s.favorites.Close(ctx),
		s.recent.Close(ctx),
		s.notes.Close(ctx),
	)
}

// reindexAll loads every store snapshot into the index.
func (s *Shelf) reindexAll() {
	s.reindex(func(x *index.Index) error {
		return errors.Join(
			x.SetBooks(index.ShelfFavorites, s.favorites.Items()),
			x.SetBooks(index.ShelfRecent, s.recent.Items()),
			x.SetNotes(s.notes.All()),
		)
	})
}

// reindex applies one update to the index. The index is derived state, so
// failures are logged and the store mutation stands.
func (s *Shelf) reindex(update func(*index.Index) error) {
	if s.index == nil {
		return
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if err := update(s.index); err != nil {
		s.logger.Warn("failed to update library index", "error", err)
	}
}

func (s *Shelf) emit(e events.Event) {
	if s.bus != nil {
		s.bus.Emit(e)
	}
}
