// Package config holds the viewer settings. Values start from Default and
// are overridden by a TOML file and then by command-line flags.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Window struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
	VSync  bool   `toml:"vsync"`
}

// Render sizes and constants. The G-buffer always matches the window size
// at startup.
type Render struct {
	CubemapSize    int     `toml:"cubemap_size"`
	ShadowMapSize  int     `toml:"shadow_map_size"`
	SSAOEnabled    bool    `toml:"ssao_enabled"`
	SSAOKernelSize int     `toml:"ssao_kernel_size"`
	SSAORadius     float32 `toml:"ssao_radius"`
	SSAOBias       float32 `toml:"ssao_bias"`
	Exposure       float32 `toml:"exposure"`
	Ambient        float32 `toml:"ambient"`
}

type Camera struct {
	FOV  float32 `toml:"fov"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
}

type Assets struct {
	Model       string `toml:"model"`
	Environment string `toml:"environment"`
}

type Log struct {
	Level string `toml:"level"`
}

type Config struct {
	Window Window `toml:"window"`
	Render Render `toml:"render"`
	Camera Camera `toml:"camera"`
	Assets Assets `toml:"assets"`
	Log    Log    `toml:"log"`
}

// MaxSSAOKernel is the size of the sample array in the SSAO shader.
const MaxSSAOKernel = 64

func Default() Config {
	return Config{
		Window: Window{Width: 1280, Height: 720, Title: "GLTF Viewer", VSync: true},
		Render: Render{
			CubemapSize:    512,
			ShadowMapSize:  2048,
			SSAOEnabled:    true,
			SSAOKernelSize: 64,
			SSAORadius:     0.5,
			SSAOBias:       0.025,
			Exposure:       1,
			Ambient:        0.3,
		},
		Camera: Camera{FOV: 45, Near: 0.1, Far: 100},
		Log:    Log{Level: "info"},
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(bufio.NewReader(f))
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults. Unknown keys are errors.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	d := toml.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func (cfg Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

func (cfg Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	w, r, c := cfg.Window, cfg.Render, cfg.Camera
	check(w.Width > 0 && w.Height > 0, "window size %dx%d must be positive", w.Width, w.Height)
	check(r.CubemapSize > 0, "cubemap_size %d must be positive", r.CubemapSize)
	check(r.ShadowMapSize > 0, "shadow_map_size %d must be positive", r.ShadowMapSize)
	check(r.SSAOKernelSize > 0 && r.SSAOKernelSize <= MaxSSAOKernel,
		"ssao_kernel_size %d outside [1, %d]", r.SSAOKernelSize, MaxSSAOKernel)
	check(r.SSAORadius > 0, "ssao_radius %g must be positive", r.SSAORadius)
	check(r.SSAOBias >= 0, "ssao_bias %g must not be negative", r.SSAOBias)
	check(r.Exposure > 0, "exposure %g must be positive", r.Exposure)
	check(r.Ambient >= 0, "ambient %g must not be negative", r.Ambient)
	check(c.FOV > 0 && c.FOV < 180, "fov %g outside (0, 180)", c.FOV)
	check(c.Near > 0 && c.Far > c.Near, "clip planes near %g far %g", c.Near, c.Far)
	if _, err := cfg.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level as a slog level name.
func (cfg Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(cfg.Log.Level))); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}
