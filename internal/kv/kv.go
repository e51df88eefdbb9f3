// Package kv is the durable on-device key-value store the domain stores
// persist themselves to. Values are opaque blobs; typed access goes through
// LoadJSON and SaveJSON.
package kv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store gets, sets and removes blobs by key.
//
// A missing key is not an error: Get reports it with ok == false and Remove
// succeeds. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the store for the named backend inside dir.
// The memory backend ignores dir.
func Open(backend, dir string, logger *slog.Logger) (Store, error) {
	if backend == BackendMemory {
		return NewMemory(), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	switch backend {
	case BackendBadger, "":
		return NewBadger(filepath.Join(dir, "badger"), logger)
	case BackendBolt:
		return NewBolt(filepath.Join(dir, "morashelf.bolt"), logger)
	case BackendSQLite:
		return NewSQLite(filepath.Join(dir, "morashelf.db"), logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
