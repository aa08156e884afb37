package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfeir-open-source/lendkit/jobs"
)

// TestLoadConfigDefaults tests the defaults applied to an empty environment
func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LENDKIT_DATABASE_URL", "postgres://localhost/lendkit")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 30*24*time.Hour, cfg.AuditRetention)
	assert.Equal(t, jobs.DefaultCleanupCron, cfg.CleanupCron)
	assert.Equal(t, 10, cfg.Pool().MaxOpenConnections)
	assert.Equal(t, 5*time.Minute, cfg.Pool().ConnectionMaxIdleTime)
}

// TestLoadConfigOverrides tests reading LENDKIT_* variables
func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LENDKIT_DATABASE_URL", "postgres://db/lendkit")
	t.Setenv("LENDKIT_REDIS_ADDR", "redis:6379")
	t.Setenv("LENDKIT_AUDIT_RETENTION", "168h")
	t.Setenv("LENDKIT_CLEANUP_CRON", "*/15 * * * *")
	t.Setenv("LENDKIT_DB_MAX_OPEN_CONNS", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.AuditRetention)
	assert.Equal(t, "*/15 * * * *", cfg.CleanupCron)
	assert.Equal(t, 25, cfg.Pool().MaxOpenConnections)
}

// TestLoadConfigErrors tests rejected configurations
func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("LENDKIT_DATABASE_URL", "")
	_, err := LoadConfig()
	assert.Error(t, err, "database url is required")

	t.Setenv("LENDKIT_DATABASE_URL", "postgres://db/lendkit")
	t.Setenv("LENDKIT_AUDIT_RETENTION", "-1h")
	_, err = LoadConfig()
	assert.Error(t, err)
}

// TestNewLogger tests the log format switch
func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger(&Config{LogFormat: "json"}))
	assert.NotNil(t, NewLogger(nil))
}
