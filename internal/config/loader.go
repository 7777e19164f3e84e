package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BOOKSCOPE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BOOKSCOPE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setBool(&cfg.Redis.Enabled, "BOOKSCOPE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BOOKSCOPE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BOOKSCOPE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BOOKSCOPE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BOOKSCOPE_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "BOOKSCOPE_REDIS_TLS_ENABLED")

	setBool(&cfg.Server.Enabled, "BOOKSCOPE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BOOKSCOPE_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "BOOKSCOPE_SERVER_API_KEY")

	setStr(&cfg.LogLevel, "BOOKSCOPE_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
