package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/config"
	"coppia/internal/log"
	"coppia/internal/metrics"
)

func testConfig(backend, dbPath string) *config.Config {
	return &config.Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		CacheTTL:           time.Minute,
		CacheSize:          16,
		ShutdownTimeout:    time.Second,
		LogLevel:           "info",
		DataBackend:        backend,
		SQLiteDBPath:       dbPath,
	}
}

func TestNewApp_Memory(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(config.BackendMemory, ""), log.New(log.DefaultConfig()), AppOptions{
		Metrics:        metrics.New(),
		DashboardCache: true,
	})
	require.NoError(t, err)

	assert.Nil(t, app.Backend.Publisher)
	assert.Nil(t, app.Backend.Exporter)
	assert.NoError(t, app.Service.Ping(ctx))

	_, err = app.Service.Dashboard(ctx, "alice", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}

func TestNewApp_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.BackendSQLite, filepath.Join(t.TempDir(), "coppia.db"))
	app, err := NewApp(ctx, cfg, log.New(log.DefaultConfig()), AppOptions{})
	require.NoError(t, err)
	defer app.Close()

	assert.NoError(t, app.Service.Ping(ctx))
	assert.Len(t, app.Service.Engine().Rules(), 14)
}

func TestNewApp_InvalidBackend(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig("postgres", ""), log.New(log.DefaultConfig()), AppOptions{})
	assert.Error(t, err)
}
