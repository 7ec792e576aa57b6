// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string `env:"PORT" envDefault:"8080"`

	// DatabaseURL is the SQLite file path or the Postgres connection string,
	// depending on StoreDriver. Required.
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// StoreDriver selects the depiction store: "sqlite" (default) or "postgres".
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is "json" (default) or "pretty" for coloured local output.
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	// Parsed by Load from the raw variable so entries are trimmed.
	CORSOrigins []string

	CommonsAPIURL  string `env:"COMMONS_API_URL" envDefault:"https://commons.wikimedia.org"`
	WikidataAPIURL string `env:"WIKIDATA_API_URL" envDefault:"https://www.wikidata.org"`
	UserAgent      string `env:"USER_AGENT"`

	// ThumbnailCacheSize bounds the name→URL thumbnail cache.
	ThumbnailCacheSize int `env:"THUMBNAIL_CACHE_SIZE" envDefault:"100"`

	// RemoteTimeout bounds each call to the Commons and Wikidata APIs.
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"15s"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error naming any required variable that is not set or any
// value that cannot be parsed.
func Load() (Config, error) {
	var raw struct {
		Config
		CORSOrigins string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173"`
	}
	// Config.CORSOrigins carries no env tag, so only the string field above is read.
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := raw.Config
	cfg.CORSOrigins = splitCSV(raw.CORSOrigins)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.StoreDriver)
	}
	if c.ThumbnailCacheSize <= 0 {
		return fmt.Errorf("THUMBNAIL_CACHE_SIZE must be positive, got %d", c.ThumbnailCacheSize)
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive, got %s", c.RemoteTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
