package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[assets]
model = "file.glb"
environment = "file.hdr"

[render]
exposure = 2.0
`), 0o644))

	cfg, err := loadConfig([]string{"-config", path, "-env", "flag.hdr", "-log", "debug", "flag.glb"})
	require.NoError(t, err)
	assert.Equal(t, "flag.glb", cfg.Assets.Model)
	assert.Equal(t, "flag.hdr", cfg.Assets.Environment)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, float32(2), cfg.Render.Exposure)
}

func TestLoadConfigNeedsAssets(t *testing.T) {
	_, err := loadConfig(nil)
	assert.ErrorContains(t, err, "model")

	_, err = loadConfig([]string{"scene.glb"})
	assert.ErrorContains(t, err, "environment")
}

func TestLoadConfigRejectsBadLevel(t *testing.T) {
	_, err := loadConfig([]string{"-env", "sky.hdr", "-log", "loud", "scene.glb"})
	assert.ErrorContains(t, err, "log level")
}
