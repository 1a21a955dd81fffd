package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, 64, cfg.Render.SSAOKernelSize)
	assert.InDelta(t, 0.5, cfg.Render.SSAORadius, 1e-6)
	assert.InDelta(t, 0.025, cfg.Render.SSAOBias, 1e-6)
	assert.Equal(t, float32(45), cfg.Camera.FOV)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[window]
width = 640
height = 480

[render]
exposure = 2.5
ssao_enabled = false

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, "GLTF Viewer", cfg.Window.Title)
	assert.Equal(t, float32(2.5), cfg.Render.Exposure)
	assert.False(t, cfg.Render.SSAOEnabled)
	assert.Equal(t, 512, cfg.Render.CubemapSize)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("[render]\nbloom = true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestDecodeSyntaxError(t *testing.T) {
	_, err := Decode(strings.NewReader("[window\nwidth = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 0
	cfg.Render.SSAOKernelSize = 65
	cfg.Camera.Far = cfg.Camera.Near
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"window size", "ssao_kernel_size", "clip planes", "log level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Assets.Environment = "sky.hdr"
	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))

	path := filepath.Join(t.TempDir(), "viewer.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
