// Command viewer renders a glTF scene with deferred shading, lit by one
// directional light and surrounded by an equirectangular environment.
//
// Usage:
//
//	viewer [-config viewer.toml] [-env sky.hdr] model.glb
//
// Drag with the left button to orbit, with the right button to pan, scroll
// to zoom. Arrow keys and Page Up/Down move the light, R resets it, O
// toggles ambient occlusion and Escape quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"deferred-viewer/config"
	"deferred-viewer/core"
	"deferred-viewer/input"
	"deferred-viewer/internal/gfx"
	"deferred-viewer/internal/logging"
	"deferred-viewer/internal/opengl"
	"deferred-viewer/internal/render"
	"deferred-viewer/scene"
	"deferred-viewer/textures"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "viewer:", err)
		os.Exit(1)
	}
}

// loadConfig applies the config file and then the flags to the defaults.
func loadConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML configuration file")
	envPath := fs.String("env", "", "equirectangular environment image (.hdr, .png, .jpg)")
	logLevel := fs.String("log", "", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return config.Config{}, err
		}
	}
	if *envPath != "" {
		cfg.Assets.Environment = *envPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if fs.NArg() > 0 {
		cfg.Assets.Model = fs.Arg(0)
	}
	if cfg.Assets.Model == "" {
		return config.Config{}, errors.New("no glTF model given")
	}
	if cfg.Assets.Environment == "" {
		return config.Config{}, errors.New("no environment image given (use -env)")
	}
	return cfg, cfg.Validate()
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logging.Set(log)

	model, err := scene.LoadGLTF(cfg.Assets.Model, textures.NewCache())
	if err != nil {
		return err
	}
	pano, err := textures.LoadPanorama(cfg.Assets.Environment)
	if err != nil {
		return err
	}
	log.Info("assets loaded", "model", cfg.Assets.Model, "meshes", len(model.Meshes),
		"environment", cfg.Assets.Environment, "panorama", fmt.Sprintf("%dx%d", pano.Width, pano.Height))

	win, err := core.NewWindow(core.WindowConfig{
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Title:     cfg.Window.Title,
		Resizable: true,
		VSync:     cfg.Window.VSync,
	})
	if err != nil {
		return err
	}
	defer win.Destroy()

	dev, err := opengl.New()
	if err != nil {
		return err
	}
	defer dev.Release()

	ctx := gfx.NewContext(dev)
	pipe, err := render.NewPipeline(ctx, cfg, model, pano)
	if err != nil {
		return err
	}
	defer pipe.Destroy()
	pipe.SetOutputSize(win.GetFramebufferSize())

	w, h := cfg.Window.Width, cfg.Window.Height
	cam := scene.NewCamera(cfg.Camera.FOV, float32(w)/float32(h), cfg.Camera.Near, cfg.Camera.Far)
	ball := scene.NewTrackballFromBounds(model.Bounds, w, h)
	ball.Apply(cam)

	return loop(win, pipe, cam, ball)
}

func loop(win *core.Window, pipe *render.Pipeline, cam *scene.Camera, ball *scene.TrackballController) error {
	ctl := newControls()
	var events []input.Event
	for !win.ShouldClose() {
		win.PollEvents()
		events = win.Events.Drain(events[:0])
		for _, e := range events {
			if ctl.handle(e) {
				continue
			}
			if e.Kind == input.Resize {
				pipe.SetOutputSize(e.Width, e.Height)
				ball.Width, ball.Height = e.Width, e.Height
				cam.UpdateAspectRatio(float32(e.Width), float32(e.Height))
				continue
			}
			ball.Handle(e)
		}
		if ctl.quit {
			win.SetShouldClose(true)
			continue
		}
		if ctl.takeToggle() {
			if err := pipe.SetSSAO(!pipe.SSAOEnabled()); err != nil {
				return err
			}
			logging.Logger().Info("ssao toggled", "enabled", pipe.SSAOEnabled())
		}
		if ball.Update() {
			ball.Apply(cam)
		}
		if err := pipe.Frame(cam, ctl.light); err != nil {
			return err
		}
		win.SwapBuffers()
	}
	return nil
}
