package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/morashelf/morashelf-core/internal/logger"
)

// LoadJSON reads key and decodes it into a T.
//
// It fails open: a missing key, a read error, or a malformed blob all yield
// the zero T with ok == false. Read errors and corruption are logged at Warn,
// never returned.
func LoadJSON[T any](ctx context.Context, s Store, key string, log *slog.Logger) (value T, ok bool) {
	log = logger.OrDiscard(log)

	data, found, err := s.Get(ctx, key)
	if err != nil {
		log.Warn("failed to read stored state, starting empty", "key", key, "error", err)
		return value, false
	}
	if !found || len(data) == 0 {
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		log.Warn("discarding malformed stored state", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return value, true
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
