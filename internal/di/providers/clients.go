package providers

import (
	"github.com/samber/do/v2"

	"github.com/morashelf/morashelf-core/internal/auth"
	"github.com/morashelf/morashelf-core/internal/catalog"
	"github.com/morashelf/morashelf-core/internal/config"
	"github.com/morashelf/morashelf-core/internal/logger"
)

// ProvideCatalogClient provides the book catalog client.
func ProvideCatalogClient(i do.Injector) (*catalog.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := catalog.New(catalog.Options{
		BaseURL:   cfg.Catalog.BaseURL,
		CoversURL: cfg.Catalog.CoversURL,
		Timeout:   cfg.Catalog.Timeout,
		RPS:       cfg.Catalog.RPS,
		Burst:     cfg.Catalog.Burst,
	}, log.Logger)

	log.Debug("Catalog client initialized", "base_url", cfg.Catalog.BaseURL)

	return client, nil
}

// ProvideRegistry provides the shadow registry of locally created accounts.
func ProvideRegistry(i do.Injector) (*auth.Registry, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return auth.NewRegistry(kvHandle.Store, log.Logger), nil
}

// ProvideAuthClient provides the auth client.
func ProvideAuthClient(i do.Injector) (*auth.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	registry := do.MustInvoke[*auth.Registry](i)

	client := auth.New(auth.Options{
		BaseURL:         cfg.Auth.BaseURL,
		Timeout:         cfg.Auth.Timeout,
		ResolvePageSize: cfg.Auth.ResolvePageSize,
	}, registry, log.Logger)

	log.Debug("Auth client initialized", "base_url", cfg.Auth.BaseURL)

	return client, nil
}
