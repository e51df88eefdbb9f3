// Package config loads data layer configuration from flags, environment variables, and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Catalog CatalogConfig
	Auth    AuthConfig
	Library LibraryConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects the on-device key-value backend.
type StorageConfig struct {
	// Backend is one of badger, bolt, sqlite, memory (default: badger)
	Backend string
	// Path is the data directory; file backends create their file inside it
	Path string
}

// CatalogConfig holds book catalog API configuration.
type CatalogConfig struct {
	BaseURL      string
	CoversURL    string
	Timeout      time.Duration
	RPS          float64
	Burst        int
	DefaultQuery string // Initial home screen query (default: computer science)
	SearchLimit  int
}

// AuthConfig holds mock auth API configuration.
type AuthConfig struct {
	BaseURL string
	Timeout time.Duration
	// ResolvePageSize bounds the bulk-list fallback of username resolution
	ResolvePageSize int
}

// LibraryConfig holds domain store tuning.
type LibraryConfig struct {
	RecentCap      int           // Stored recently-viewed entries (default: 50)
	RecentPreview  int           // Entries shown on the profile screen (default: 5)
	PersistDelay   time.Duration // Debounce before a store snapshot is written
	RecommendLimit int
}

// Flags carries command-line overrides. Empty fields fall through to the
// environment, then to defaults.
type Flags struct {
	EnvFile     string
	Environment string
	LogLevel    string
	Backend     string
	DataPath    string
	CatalogURL  string
	AuthURL     string
}

// Valid storage backends.
var validBackends = map[string]bool{
	"badger": true,
	"bolt":   true,
	"sqlite": true,
	"memory": true,
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(flags Flags) (*Config, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv.Load never overrides variables that are already set. A missing
	// file is normal; an unreadable or malformed one is not.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.Environment, "MORASHELF_ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(flags.LogLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getConfigValue(flags.Backend, "STORAGE_BACKEND", "badger")),
			Path:    getConfigValue(flags.DataPath, "DATA_PATH", ""),
		},
		Catalog: CatalogConfig{
			BaseURL:      strings.TrimRight(getConfigValue(flags.CatalogURL, "CATALOG_BASE_URL", "https://openlibrary.org"), "/"),
			CoversURL:    strings.TrimRight(getConfigValue("", "CATALOG_COVERS_URL", "https://covers.openlibrary.org"), "/"),
			RPS:          getFloatConfigValue("", "CATALOG_RPS", 5),
			Burst:        getIntConfigValue("", "CATALOG_BURST", 5),
			DefaultQuery: getConfigValue("", "CATALOG_DEFAULT_QUERY", "computer science"),
			SearchLimit:  getIntConfigValue("", "CATALOG_SEARCH_LIMIT", 20),
		},
		Auth: AuthConfig{
			BaseURL:         strings.TrimRight(getConfigValue(flags.AuthURL, "AUTH_BASE_URL", "https://dummyjson.com"), "/"),
			ResolvePageSize: getIntConfigValue("", "AUTH_RESOLVE_PAGE_SIZE", 100),
		},
		Library: LibraryConfig{
			RecentCap:      getIntConfigValue("", "RECENT_CAP", 50),
			RecentPreview:  getIntConfigValue("", "RECENT_PREVIEW", 5),
			RecommendLimit: getIntConfigValue("", "RECOMMEND_LIMIT", 10),
		},
	}

	var err error
	if cfg.Catalog.Timeout, err = getDurationConfigValue("CATALOG_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Auth.Timeout, err = getDurationConfigValue("AUTH_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Library.PersistDelay, err = getDurationConfigValue("PERSIST_DELAY", "250ms"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage backend: %s (must be badger, bolt, sqlite, or memory)", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return errors.New("data path cannot be empty for a durable backend")
	}

	if c.Catalog.BaseURL == "" || c.Auth.BaseURL == "" {
		return errors.New("catalog and auth base URLs are required")
	}
	if c.Catalog.SearchLimit <= 0 {
		return fmt.Errorf("catalog search limit must be positive, got %d", c.Catalog.SearchLimit)
	}
	if c.Catalog.RPS <= 0 || c.Catalog.Burst <= 0 {
		return errors.New("catalog rate limit must be positive")
	}
	if c.Library.RecentCap <= 0 {
		return fmt.Errorf("recent cap must be positive, got %d", c.Library.RecentCap)
	}
	if c.Library.RecentPreview <= 0 || c.Library.RecentPreview > c.Library.RecentCap {
		return fmt.Errorf("recent preview must be between 1 and %d", c.Library.RecentCap)
	}
	if c.Library.PersistDelay < 0 {
		return errors.New("persist delay cannot be negative")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ~/.morashelf.
func (c *Config) expandDataPath() error {
	if c.Storage.Backend == "memory" {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Storage.Path, filepath.Join(homeDir, ".morashelf"))
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func getDurationConfigValue(envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue("", envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, str, err)
	}
	return d, nil
}
