// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Addr      string `env:"ARCHITEX_ADDR" envDefault:"127.0.0.1:8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	API     APIConfig
	Storage StorageConfig
	Polling PollingConfig

	IdleTimeout     time.Duration `env:"WORKSPACE_IDLE_TIMEOUT" envDefault:"30m"` // 0 keeps canvases loaded
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// APIConfig points at the backend that owns projects and jobs.
type APIConfig struct {
	BaseURL   string        `env:"ARCHITEX_API_URL" envDefault:"http://127.0.0.1:8000"`
	Token     string        `env:"ARCHITEX_API_TOKEN"`
	Timeout   time.Duration `env:"ARCHITEX_API_TIMEOUT" envDefault:"15s"`
	RateLimit float64       `env:"API_RATE_LIMIT" envDefault:"0"` // requests per second, 0 disables
	RateBurst int           `env:"API_RATE_BURST" envDefault:"5"`
}

// StorageConfig selects where canvas state is persisted.
type StorageConfig struct {
	Backend     string        `env:"ARCHITEX_STORE" envDefault:"file"`
	StateDir    string        `env:"ARCHITEX_STATE_DIR" envDefault:".architex"`
	RedisURL    string        `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`
	RedisTTL    time.Duration `env:"REDIS_TTL" envDefault:"0s"`
	SQLitePath  string        `env:"SQLITE_PATH" envDefault:"architex.db"`
	DatabaseURL string        `env:"DATABASE_URL"`
}

// PollingConfig drives the job poller.
type PollingConfig struct {
	Interval    time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	MaxAttempts int           `env:"POLL_MAX_ATTEMPTS" envDefault:"60"`
	Retention   time.Duration `env:"JOB_RETENTION" envDefault:"1h"` // finished jobs stay readable this long
}

// Load reads a .env file when present (existing variables win) and then
// parses the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case StoreFile, StoreRedis, StoreSQLite:
	case StorePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("config: ARCHITEX_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unsupported store backend %q", c.Storage.Backend)
	}
	if c.Polling.Interval <= 0 {
		return errors.New("config: POLL_INTERVAL must be positive")
	}
	if c.Polling.MaxAttempts < 1 {
		return errors.New("config: POLL_MAX_ATTEMPTS must be at least 1")
	}
	if c.IdleTimeout < 0 {
		return errors.New("config: WORKSPACE_IDLE_TIMEOUT cannot be negative")
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: ARCHITEX_API_URL cannot be empty")
	}
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: ARCHITEX_ADDR cannot be empty")
	}
	return nil
}
