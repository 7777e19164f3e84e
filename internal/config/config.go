// Package config defines the top-level configuration for bookscope and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/bookscope/internal/domain"
	"github.com/alanyoungcy/bookscope/internal/venue"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BOOKSCOPE_* environment
// variables.
type Config struct {
	Feeds    []FeedConfig `toml:"feeds"`
	Redis    RedisConfig  `toml:"redis"`
	Server   ServerConfig `toml:"server"`
	LogLevel string       `toml:"log_level"`
}

// FeedConfig selects one (venue, symbol) book subscription.
type FeedConfig struct {
	Venue  string `toml:"venue"`
	Symbol string `toml:"symbol"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// application runs with in-process fallbacks instead.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds the HTTP/WebSocket API server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// Defaults returns a Config populated with sane defaults, suitable as the
// base that a TOML file is decoded over.
func Defaults() Config {
	return Config{
		Feeds: []FeedConfig{
			{Venue: string(domain.VenueOKX), Symbol: "BTC-USDT"},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8085,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for consistency and collects every
// problem found into a single error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Feeds) == 0 {
		errs = append(errs, "feeds: at least one feed must be configured")
	}
	seen := make(map[string]bool)
	for i, f := range c.Feeds {
		if f.Symbol == "" {
			errs = append(errs, fmt.Sprintf("feeds[%d]: symbol must not be empty", i))
		}
		if _, err := venue.Lookup(domain.Venue(f.Venue)); err != nil {
			errs = append(errs, fmt.Sprintf("feeds[%d]: unsupported venue %q (supported: %v)", i, f.Venue, venue.Supported()))
		}
		key := f.Venue + ":" + f.Symbol
		if seen[key] {
			errs = append(errs, fmt.Sprintf("feeds[%d]: duplicate feed %s", i, key))
		}
		seen[key] = true
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log_level: must be debug, info, warn or error, got %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
