// Package config loads winddownctl configuration from a TOML file with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full winddownctl configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	// Backend is one of "sqlite", "postgres", "memory".
	Backend string `toml:"backend"`
	// Path is the SQLite database file (sqlite backend).
	Path string `toml:"path"`
	// DSN is the PostgreSQL connection string (postgres backend).
	DSN string `toml:"dsn"`
}

// CacheConfig selects and parameterizes the optional settings cache.
type CacheConfig struct {
	// Backend is one of "none", "memory", "redis".
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
}

// Default returns the configuration used when no config file is given:
// SQLite in the working directory, no cache, info logging.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Backend: "sqlite", Path: "winddown.db"},
		Cache:   CacheConfig{Backend: "none"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads config from the given path, expanding ${VAR} environment
// references before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that the selected backends are known and have the
// parameters they need.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case "", "none", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}

	return nil
}
