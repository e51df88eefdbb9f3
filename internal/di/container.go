// Package di provides dependency injection configuration for the MoraShelf data layer.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/morashelf/morashelf-core/internal/auth"
	"github.com/morashelf/morashelf-core/internal/catalog"
	"github.com/morashelf/morashelf-core/internal/config"
	"github.com/morashelf/morashelf-core/internal/di/providers"
	"github.com/morashelf/morashelf-core/internal/logger"
	"github.com/morashelf/morashelf-core/internal/recommend"
)

// NewContainer creates and configures the DI container with all providers.
// flags carries command-line overrides for config loading.
func NewContainer(flags config.Flags) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, flags)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Storage and events
	do.Provide(injector, providers.ProvideKV)
	do.Provide(injector, providers.ProvideBus)

	// Remote clients
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideAuthClient)

	// Library
	do.Provide(injector, providers.ProvideStores)
	do.Provide(injector, providers.ProvideRecommendEngine)
	do.Provide(injector, providers.ProvideIndex)
	do.Provide(injector, providers.ProvideShelf)

	return injector
}

// Bootstrap initializes all services and hydrates the library.
// This triggers lazy initialization of every provider.
func Bootstrap(ctx context.Context, injector *do.RootScope) (*providers.ShelfHandle, error) {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := do.Invoke[*providers.KVHandle](injector); err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.BusHandle](injector)
	_ = do.MustInvoke[*catalog.Client](injector)
	_ = do.MustInvoke[*auth.Client](injector)
	_ = do.MustInvoke[*recommend.Engine](injector)
	_ = do.MustInvoke[*providers.IndexHandle](injector)

	shelfHandle := do.MustInvoke[*providers.ShelfHandle](injector)
	if err := shelfHandle.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate library: %w", err)
	}

	return shelfHandle, nil
}
