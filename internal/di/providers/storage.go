package providers

import (
	"github.com/samber/do/v2"

	"github.com/morashelf/morashelf-core/internal/config"
	"github.com/morashelf/morashelf-core/internal/kv"
	"github.com/morashelf/morashelf-core/internal/logger"
)

// KVHandle wraps the key-value store with shutdown capability.
type KVHandle struct {
	kv.Store
}

// Shutdown implements do.Shutdownable.
func (h *KVHandle) Shutdown() error {
	return h.Close()
}

// ProvideKV opens the configured key-value backend.
func ProvideKV(i do.Injector) (*KVHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store, err := kv.Open(cfg.Storage.Backend, cfg.Storage.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Debug("Storage opened", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)

	return &KVHandle{Store: store}, nil
}
