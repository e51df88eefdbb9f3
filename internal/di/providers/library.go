package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/morashelf/morashelf-core/internal/auth"
	"github.com/morashelf/morashelf-core/internal/catalog"
	"github.com/morashelf/morashelf-core/internal/config"
	"github.com/morashelf/morashelf-core/internal/index"
	"github.com/morashelf/morashelf-core/internal/logger"
	"github.com/morashelf/morashelf-core/internal/recommend"
	"github.com/morashelf/morashelf-core/internal/shelf"
	"github.com/morashelf/morashelf-core/internal/state"
)

// Stores groups the domain stores.
type Stores struct {
	Session   *state.Session
	Favorites *state.Favorites
	Recent    *state.RecentlyViewed
	Notes     *state.Notes
}

// ProvideStores provides the domain stores, all emitting on the shared bus.
func ProvideStores(i do.Injector) (*Stores, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	kvHandle := do.MustInvoke[*KVHandle](i)
	busHandle := do.MustInvoke[*BusHandle](i)

	opts := state.Options{
		Emitter:       busHandle.Bus,
		Logger:        log.Logger,
		PersistDelay:  cfg.Library.PersistDelay,
		RecentCap:     cfg.Library.RecentCap,
		RecentPreview: cfg.Library.RecentPreview,
	}

	return &Stores{
		Session:   state.NewSession(kvHandle.Store, opts),
		Favorites: state.NewFavorites(kvHandle.Store, opts),
		Recent:    state.NewRecentlyViewed(kvHandle.Store, opts),
		Notes:     state.NewNotes(kvHandle.Store, opts),
	}, nil
}

// ProvideRecommendEngine provides the recommendation engine.
func ProvideRecommendEngine(i do.Injector) (*recommend.Engine, error) {
	client := do.MustInvoke[*catalog.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return recommend.NewEngine(client, log.Logger), nil
}

// IndexHandle wraps the library index with shutdown capability.
type IndexHandle struct {
	*index.Index
}

// Shutdown implements do.Shutdownable.
func (h *IndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideIndex provides the in-memory library search index. It is filled
// from the stores when the shelf hydrates.
func ProvideIndex(i do.Injector) (*IndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := index.New(log.Logger)
	if err != nil {
		return nil, err
	}
	return &IndexHandle{Index: idx}, nil
}

// ShelfHandle wraps the shelf with shutdown capability.
type ShelfHandle struct {
	*shelf.Shelf
}

// Shutdown implements do.Shutdownable. Pending store snapshots are written
// before storage closes.
func (h *ShelfHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Close(ctx)
}

// ProvideShelf provides the composed state tree.
func ProvideShelf(i do.Injector) (*ShelfHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	stores := do.MustInvoke[*Stores](i)
	busHandle := do.MustInvoke[*BusHandle](i)
	catalogClient := do.MustInvoke[*catalog.Client](i)
	authClient := do.MustInvoke[*auth.Client](i)
	engine := do.MustInvoke[*recommend.Engine](i)
	indexHandle := do.MustInvoke[*IndexHandle](i)

	s := shelf.New(shelf.Deps{
		Catalog:        catalogClient,
		Auth:           authClient,
		Recommender:    engine,
		Session:        stores.Session,
		Favorites:      stores.Favorites,
		Recent:         stores.Recent,
		Notes:          stores.Notes,
		Index:          indexHandle.Index,
		Bus:            busHandle.Bus,
		Logger:         log.Logger,
		SearchLimit:    cfg.Catalog.SearchLimit,
		RecommendLimit: cfg.Library.RecommendLimit,
	})

	return &ShelfHandle{Shelf: s}, nil
}
