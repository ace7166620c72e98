package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Worker.LockTTL)
	assert.Equal(t, 5*time.Minute, cfg.Worker.DebounceWindow)
	assert.Equal(t, "memory", cfg.Worker.Tracker)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
worker:
  poll_interval: 15s
  lock_ttl: 45s
  debounce_window: 10m
  tracker: redis
redis:
  addr: redis.internal:6379
  db: 2
postgres:
  dsn: postgres://worker@db/alerts
quotes:
  base_url: https://api.broker.example
  stream_url: wss://stream.broker.example/v1
notify:
  webhook_url: https://push.internal/events
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 45*time.Second, cfg.Worker.LockTTL)
	assert.Equal(t, 10*time.Minute, cfg.Worker.DebounceWindow)
	assert.Equal(t, "redis", cfg.Worker.Tracker)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "https://api.broker.example", cfg.Quotes.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unset fields still pick up defaults.
	assert.Equal(t, 10*time.Second, cfg.Quotes.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PRICEWATCH_PG_DSN", "postgres://secret@db/alerts")
	t.Setenv("PRICEWATCH_QUOTES_API_KEY", "env-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://secret@db/alerts", cfg.Postgres.DSN)
	assert.Equal(t, "env-key", cfg.Quotes.APIKey)
}

func TestLoad_RejectsLockTTLAtOrBelowPollInterval(t *testing.T) {
	path := writeConfig(t, `
worker:
  poll_interval: 30s
  lock_ttl: 30s
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock_ttl")
}

func TestLoad_RejectsUnknownTracker(t *testing.T) {
	path := writeConfig(t, `
worker:
  tracker: dynamodb
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}
