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

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dynamic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWatcherLoadsInitialConfig(t *testing.T) {
	path := writeConfigFile(t, `
limits:
  maxModelsPerUser: 5
  maxNameLength: 50
exploring:
  defaultDepth: 4
`)

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	current := w.Current()
	assert.Equal(t, 5, current.Limits.MaxModelsPerUser)
	assert.Equal(t, 50, current.Limits.MaxNameLength)
	assert.Equal(t, 4, current.Exploring.DefaultDepth)

	// Unset fields keep their defaults
	assert.Equal(t, 1000, current.Exploring.MaxOpenSessions)
	assert.Equal(t, 60, current.Exploring.SessionTTLMinutes)
}

func TestWatcherRejectsInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
limits:
  maxModelsPerUser: 0
`)

	_, err := NewWatcher(path, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxModelsPerUser")
}

func TestReloadUpdatesCurrentAndNotifies(t *testing.T) {
	path := writeConfigFile(t, `
exploring:
  defaultDepth: 3
`)

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan *DynamicConfig, 1)
	w.OnChange(func(dc *DynamicConfig) { changed <- dc })

	require.NoError(t, os.WriteFile(path, []byte(`
exploring:
  defaultDepth: 6
`), 0o644))
	w.reload()

	select {
	case dc := <-changed:
		assert.Equal(t, 6, dc.Exploring.DefaultDepth)
	case <-time.After(2 * time.Second):
		t.Fatal("reload did not notify change handlers")
	}
	assert.Equal(t, 6, w.Current().Exploring.DefaultDepth)
}

func TestReloadKeepsCurrentOnBadFile(t *testing.T) {
	path := writeConfigFile(t, `
exploring:
  defaultDepth: 3
`)

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))
	w.reload()

	assert.Equal(t, 3, w.Current().Exploring.DefaultDepth)
}
