package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{Backend: "badger", Path: "/tmp/morashelf"},
		Catalog: CatalogConfig{
			BaseURL:     "https://openlibrary.org",
			CoversURL:   "https://covers.openlibrary.org",
			RPS:         5,
			Burst:       5,
			SearchLimit: 20,
		},
		Auth:    AuthConfig{BaseURL: "https://dummyjson.com", ResolvePageSize: 100},
		Library: LibraryConfig{RecentCap: 50, RecentPreview: 5, PersistDelay: 250 * time.Millisecond},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "test" }, "invalid environment"},
		{"bad log level", func(c *Config) { c.Logger.Level = "trace" }, "invalid log level"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "invalid storage backend"},
		{"durable backend without path", func(c *Config) { c.Storage.Path = "" }, "data path"},
		{"zero recent cap", func(c *Config) { c.Library.RecentCap = 0 }, "recent cap"},
		{"preview over cap", func(c *Config) { c.Library.RecentPreview = 60 }, "recent preview"},
		{"negative delay", func(c *Config) { c.Library.PersistDelay = -time.Second }, "persist delay"},
		{"zero search limit", func(c *Config) { c.Catalog.SearchLimit = 0 }, "search limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_MemoryBackendNeedsNoPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = StorageConfig{Backend: "memory"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())

	cfg, err := LoadConfig(Flags{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "https://openlibrary.org", cfg.Catalog.BaseURL)
	assert.Equal(t, "https://covers.openlibrary.org", cfg.Catalog.CoversURL)
	assert.Equal(t, "https://dummyjson.com", cfg.Auth.BaseURL)
	assert.Equal(t, "computer science", cfg.Catalog.DefaultQuery)
	assert.Equal(t, 20, cfg.Catalog.SearchLimit)
	assert.Equal(t, 50, cfg.Library.RecentCap)
	assert.Equal(t, 5, cfg.Library.RecentPreview)
	assert.Equal(t, 10, cfg.Library.RecommendLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Library.PersistDelay)
	assert.Equal(t, 15*time.Second, cfg.Catalog.Timeout)
}

func TestLoadConfig_FlagBeatsEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "bolt")
	t.Setenv("DATA_PATH", t.TempDir())

	cfg, err := LoadConfig(Flags{Backend: "memory", EnvFile: "does-not-exist.env"})
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# local overrides\nRECENT_CAP=20\nCATALOG_BASE_URL=http://localhost:9000/\nPERSIST_DELAY=1s\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("DATA_PATH", dir)
	// Registered so t.Setenv restores them after godotenv sets them.
	t.Setenv("RECENT_CAP", "")
	t.Setenv("CATALOG_BASE_URL", "")
	t.Setenv("PERSIST_DELAY", "")
	require.NoError(t, os.Unsetenv("RECENT_CAP"))
	require.NoError(t, os.Unsetenv("CATALOG_BASE_URL"))
	require.NoError(t, os.Unsetenv("PERSIST_DELAY"))

	cfg, err := LoadConfig(Flags{EnvFile: envPath})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Library.RecentCap)
	assert.Equal(t, "http://localhost:9000", cfg.Catalog.BaseURL)
	assert.Equal(t, time.Second, cfg.Library.PersistDelay)
}

func TestLoadConfig_MalformedEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("RECENT_CAP='20\n"), 0o600))
	t.Setenv("DATA_PATH", dir)

	_, err := LoadConfig(Flags{EnvFile: envPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestLoadConfig_EnvFileIsDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	_, err := LoadConfig(Flags{EnvFile: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("CATALOG_TIMEOUT", "soon")

	_, err := LoadConfig(Flags{EnvFile: "does-not-exist.env"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_TIMEOUT")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/shelf", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shelf"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("/var/lib/../lib/shelf", "")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/shelf", got)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("MORASHELF_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "MORASHELF_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "MORASHELF_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "MORASHELF_UNSET_KEY", "default"))
}
