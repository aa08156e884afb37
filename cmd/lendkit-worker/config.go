package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sfeir-open-source/lendkit"
	"github.com/sfeir-open-source/lendkit/jobs"
)

// Config holds runtime configuration for the worker.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"pretty"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	AuditRetention time.Duration `envconfig:"AUDIT_RETENTION" default:"720h"`
	CleanupCron    string        `envconfig:"CLEANUP_CRON" default:"0 3 * * *"`
	Concurrency    int           `envconfig:"CONCURRENCY" default:"2"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`
}

// LoadConfig reads LENDKIT_* environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("lendkit", &cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url must be provided")
	}
	if cfg.AuditRetention <= 0 {
		return nil, errors.New("audit retention must be positive")
	}
	if cfg.CleanupCron == "" {
		cfg.CleanupCron = jobs.DefaultCleanupCron
	}
	return &cfg, nil
}

// Pool returns the connection pool settings.
func (c *Config) Pool() lendkit.PoolConfig {
	return lendkit.PoolConfig{
		MaxOpenConnections:    c.MaxOpenConns,
		MaxIdleConnections:    c.MaxIdleConns,
		ConnectionMaxLifetime: c.ConnMaxLifetime,
		ConnectionMaxIdleTime: c.ConnMaxIdleTime,
	}
}

// NewLogger builds the process logger.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
