package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coppia/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := log.New(log.DefaultConfig())
	t.Cleanup(func() { log.SetDefault(prev) })

	logger := SetupLogger("debug", log.ComponentCLI)
	assert.Equal(t, log.ComponentCLI, logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("COPPIA_TEST_KEY=from-file\n"), 0o600))
	t.Setenv("COPPIA_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("COPPIA_TEST_KEY"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("COPPIA_TEST_KEY"))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")), "missing file is fine")
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "9090")
	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)

	t.Setenv("PORT", "not-a-port")
	_, err = LoadAndValidateConfig()
	assert.Error(t, err)
}

func TestRunOnCancel_RunsCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})
	done := runOnCancel(ctx, cancel, log.New(log.DefaultConfig()), time.Second, func(context.Context) {
		close(cleaned)
	})

	cancel()
	WaitForShutdown(ctx, done)
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}

func TestRunOnCancel_TimeoutDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	done := runOnCancel(ctx, cancel, log.New(log.DefaultConfig()), 20*time.Millisecond, func(context.Context) {
		<-release
	})
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not honour its timeout")
	}
}
