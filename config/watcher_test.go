package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestNewWatcher_RequiresPath(t *testing.T) {
	_, err := NewWatcher(NewLoader(), DefaultConfig())
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "interview:\n  silence_threshold: 500\n", base)

	loader := NewLoader().WithConfigPath(path).WithLegacyEnv(false)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial,
		WithPollInterval(10*time.Millisecond),
		WithDebounce(10*time.Millisecond),
		WithWatcherLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	var got atomic.Value
	w.OnReload(func(cfg *Config) { got.Store(cfg.Interview.SilenceThreshold) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(ctx))

	writeConfig(t, path, "interview:\n  silence_threshold: 750\n", base.Add(time.Minute))

	assert.Eventually(t, func() bool {
		v, ok := got.Load().(float64)
		return ok && v == 750
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 750.0, w.Current().Interview.SilenceThreshold)
	assert.Equal(t, 1, w.Reloads())
}

func TestWatcher_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "server:\n  http_port: 8000\n", base)

	loader := NewLoader().WithConfigPath(path).WithLegacyEnv(false)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial,
		WithPollInterval(10*time.Millisecond),
		WithDebounce(5*time.Millisecond))
	require.NoError(t, err)

	var calls atomic.Int32
	w.OnReload(func(*Config) { calls.Add(1) })

	require.NoError(t, w.Start(context.Background()))
	writeConfig(t, path, "server:\n  http_port: -1\n", base.Add(time.Minute))
	time.Sleep(150 * time.Millisecond)
	w.Stop()

	assert.False(t, w.IsRunning())
	assert.Equal(t, int32(0), calls.Load())
	assert.Same(t, initial, w.Current())
}
