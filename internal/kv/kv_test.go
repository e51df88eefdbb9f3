package kv

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends opens one store per backend in a temp dir.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	out := map[string]Store{BackendMemory: NewMemory()}

	inMem, err := NewBadger("", nil)
	require.NoError(t, err)
	out["badger-inmemory"] = inMem

	for _, name := range []string{BackendBadger, BackendBolt, BackendSQLite} {
		s, err := Open(name, filepath.Join(t.TempDir(), name), nil)
		require.NoError(t, err)
		out[name] = s
	}

	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})
	return out
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Missing key is absent, not an error.
			v, ok, err := s.Get(ctx, "@user_session")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)

			require.NoError(t, s.Set(ctx, "@user_session", []byte(`{"id":"1"}`)))
			v, ok, err = s.Get(ctx, "@user_session")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"id":"1"}`, string(v))

			// Overwrite keeps only the newest value.
			require.NoError(t, s.Set(ctx, "@user_session", []byte(`{"id":"2"}`)))
			v, _, err = s.Get(ctx, "@user_session")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"2"}`, string(v))

			require.NoError(t, s.Remove(ctx, "@user_session"))
			_, ok, err = s.Get(ctx, "@user_session")
			require.NoError(t, err)
			assert.False(t, ok)

			// Removing a missing key succeeds.
			assert.NoError(t, s.Remove(ctx, "@never_written"))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelf.bolt")

	s, err := NewBolt(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "@user_favorites", []byte("[]")))
	require.NoError(t, s.Close())

	s, err = NewBolt(path, nil)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "@user_favorites")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(v))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoadJSON_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, SaveJSON(ctx, m, "k", sample{Name: "dune", Count: 3}))

	got, ok := LoadJSON[sample](ctx, m, "k", nil)
	assert.True(t, ok)
	assert.Equal(t, sample{Name: "dune", Count: 3}, got)
}

func TestLoadJSON_FailsOpen(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	got, ok := LoadJSON[[]sample](ctx, m, "missing", log)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Empty(t, buf.String(), "missing keys are not worth a warning")

	require.NoError(t, m.Set(ctx, "corrupt", []byte(`[{"name":`)))
	got, ok = LoadJSON[[]sample](ctx, m, "corrupt", log)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Contains(t, buf.String(), "discarding malformed stored state")
	assert.Contains(t, buf.String(), "key=corrupt")
}

type failingStore struct{ Store }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, assert.AnError
}

func TestLoadJSON_ReadErrorFailsOpen(t *testing.T) {
	got, ok := LoadJSON[map[string]sample](context.Background(), failingStore{NewMemory()}, "k", nil)
	assert.False(t, ok)
	assert.Nil(t, got)
}
