package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, uint32(1280), cfg.Application.Width)
	assert.Equal(t, uint32(720), cfg.Application.Height)
	assert.True(t, cfg.Culling.OcclusionEnabled)
	assert.Less(t, cfg.Culling.FrameBudgetMS, 0.0, "budget disabled by default")
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[application]
name = "Test Viewer"

[culling]
occlusion_enabled = false
min_instanced_meshes = 64
frame_budget_ms = 8.0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Test Viewer", cfg.Application.Name)
	assert.False(t, cfg.Culling.OcclusionEnabled)
	assert.Equal(t, 64, cfg.Culling.MinInstancedMeshes)
	assert.Equal(t, 8.0, cfg.Culling.FrameBudgetMS)
	// Untouched keys keep their defaults.
	assert.Equal(t, uint32(1280), cfg.Application.Width)
	assert.Equal(t, float32(64), cfg.Culling.MinContributionArea)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml {{{"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestWatcherStartsWithFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[culling]
occlusion_visualization = true
`), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.Current().Culling.OcclusionVisualization)
}

func TestWatcherMissingFileUsesDefaults(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, Default(), w.Current())
}
