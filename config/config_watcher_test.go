package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfigFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestConfigWatcherInitialLoad(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "server:\n  port: 9100\n")

	cw, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer cw.Close()

	assert.Equal(t, 9100, cw.GetCurrentConfig().Server.Port)
}

func TestConfigWatcherRejectsMissingFile(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestConfigWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "server:\n  port: 9100\n")

	cw, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer cw.Close()

	updates := cw.Subscribe()
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9200\n"), 0644))

	select {
	case cfg := <-updates:
		assert.Equal(t, 9200, cfg.Server.Port)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
	assert.Equal(t, 9200, cw.GetCurrentConfig().Server.Port)
}

func TestConfigWatcherKeepsLastGoodConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "server:\n  port: 9100\n")

	cw, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer cw.Close()

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

	// Give the watcher a moment to process the invalid write.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 9100, cw.GetCurrentConfig().Server.Port)
}
