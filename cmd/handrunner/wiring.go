package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/handrunner/internal/action"
	"github.com/ayusman/handrunner/internal/app"
	"github.com/ayusman/handrunner/internal/capture"
	"github.com/ayusman/handrunner/internal/config"
	"github.com/ayusman/handrunner/internal/detector"
	"github.com/ayusman/handrunner/internal/gesture"
	"github.com/ayusman/handrunner/internal/server"
	"github.com/ayusman/handrunner/internal/store"
)

// components holds everything built from the config. The app closes its own
// camera, detector, display and key backend; close releases the rest.
type components struct {
	app    *app.App
	hub    *server.Hub
	store  *store.Store
	source string
}

func (c *components) close() {
	if c.store != nil {
		c.store.Close()
	}
}

func build(cfg config.Config, logger *slog.Logger) (*components, error) {
	c := &components{hub: server.NewHub()}
	replaying := cfg.Detector.Backend == config.DetectorReplay

	camera, source, err := openCamera(cfg, replaying)
	if err != nil {
		return nil, err
	}
	c.source = source

	rule, err := gesture.ParseThumbRule(cfg.Gesture.ThumbRule)
	if err != nil {
		return nil, err
	}
	bindings, err := action.ParseBindings(cfg.Keys.Bindings)
	if err != nil {
		return nil, fmt.Errorf("key bindings: %w", err)
	}

	if cfg.History.DB != "" {
		path := config.ExpandPath(cfg.History.DB)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
		c.store, err = store.New(path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	det, err := openDetector(cfg, logger)
	if err != nil {
		c.close()
		return nil, err
	}

	presser, err := action.Open(cfg.Keys.Backend, action.Options{
		PluginDir:     config.ExpandPath(cfg.Keys.PluginDir),
		Plugin:        cfg.Keys.Plugin,
		PluginTimeout: time.Duration(cfg.Keys.PluginTimeoutMS) * time.Millisecond,
		Logger:        logger,
	})
	if err != nil {
		det.Close()
		c.close()
		return nil, fmt.Errorf("key backend %s: %w", cfg.Keys.Backend, err)
	}

	// The blank frames of a replay never move.
	var motion *capture.MotionGate
	if cfg.Motion.Enabled && !replaying {
		motion = capture.NewMotionGate(cfg.Motion.Threshold, time.Duration(cfg.Motion.HoldMS)*time.Millisecond)
	}

	var display app.Display = app.NullDisplay{}
	if cfg.Display.Enabled {
		display = app.NewWindowDisplay(cfg.Display.Window)
	}

	c.app, err = app.New(app.Config{
		Camera:          camera,
		Detector:        det,
		Dispatcher:      action.NewDispatcher(presser, bindings, logger),
		ThumbRule:       rule,
		Debounce:        cfg.Debounce(),
		Display:         display,
		Overlay:         cfg.Display.Overlay,
		Motion:          motion,
		Hub:             c.hub,
		Store:           c.store,
		Source:          source,
		MaxReadFailures: cfg.Camera.MaxReadFailures,
		Logger:          logger,
	})
	if err != nil {
		det.Close()
		presser.Close()
		display.Close()
		c.close()
		return nil, err
	}
	return c, nil
}

func openCamera(cfg config.Config, replaying bool) (capture.Camera, string, error) {
	switch {
	case replaying:
		return capture.NewBlankCamera(cfg.Camera.Width, cfg.Camera.Height), "replay", nil
	case len(cfg.Camera.Images) > 0:
		paths := make([]string, len(cfg.Camera.Images))
		for i, p := range cfg.Camera.Images {
			paths[i] = config.ExpandPath(p)
		}
		cam, err := capture.LoadStillCamera(paths, cfg.Camera.Mirror)
		if err != nil {
			return nil, "", fmt.Errorf("load still images: %w", err)
		}
		cam.SetFPS(cfg.Camera.FPS)
		return cam, "images", nil
	default:
		return capture.NewCamera(capture.Options{
			DeviceID: cfg.Camera.Device,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
			Mirror:   cfg.Camera.Mirror,
		}), "camera", nil
	}
}

func openDetector(cfg config.Config, logger *slog.Logger) (detector.Detector, error) {
	var det detector.Detector
	switch cfg.Detector.Backend {
	case config.DetectorReplay:
		replay, err := detector.OpenReplay(config.ExpandPath(cfg.Detector.ReplayFile))
		if err != nil {
			return nil, fmt.Errorf("open replay: %w", err)
		}
		det = replay
	default:
		mp, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        cfg.Detector.MaxHands,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConfidence,
			Script:          config.ExpandPath(cfg.Detector.Script),
			Python:          cfg.Detector.Python,
			IdleTimeoutMs:   cfg.Detector.IdleTimeoutMS,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("hand detector: %w", err)
		}
		det = mp
	}

	if cfg.Detector.RecordFile == "" {
		return det, nil
	}
	f, err := os.Create(config.ExpandPath(cfg.Detector.RecordFile))
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("create recording: %w", err)
	}
	logger.Info("recording landmarks", "file", f.Name())
	return detector.NewRecorder(det, f), nil
}
