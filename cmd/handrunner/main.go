package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ayusman/handrunner/internal/app"
	"github.com/ayusman/handrunner/internal/config"
	"github.com/ayusman/handrunner/internal/logging"
	"github.com/ayusman/handrunner/internal/server"
	"github.com/ayusman/handrunner/internal/tray"
	"github.com/mattn/go-isatty"
)

const version = "0.3.0"

// The preview window and the tray both need the process main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		cameraID   = flag.Int("camera", 0, "Camera device index")
		debounceMS = flag.Int("debounce-ms", 1000, "Minimum milliseconds between two key presses")
		keys       = flag.String("keys", config.BackendRobotgo, "Key backend: robotgo, uinput, sendinput, plugin, log")
		headless   = flag.Bool("headless", false, "Run without a preview window, controlled from the tray")
		listen     = flag.String("listen", "", "Status server address, e.g. 127.0.0.1:8080")
		historyDB  = flag.String("history-db", "", "SQLite file recording sessions and dispatched gestures")
		replay     = flag.String("replay", "", "Replay recorded landmarks instead of using the camera")
		record     = flag.String("record", "", "Record detected landmarks to this file")
		thumbRule  = flag.String("thumb-rule", "", "Thumb rule: tip-right-of-ip or tip-left-of-ip")
		logLevel   = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVer    = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("handrunner v%s\n", version)
		return nil
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var overrides config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			overrides.CameraDevice = cameraID
		case "debounce-ms":
			overrides.DebounceMS = debounceMS
		case "keys":
			overrides.KeysBackend = keys
		case "headless":
			overrides.Headless = headless
		case "listen":
			overrides.Listen = listen
		case "history-db":
			overrides.HistoryDB = historyDB
		case "replay":
			overrides.ReplayFile = replay
		case "record":
			overrides.RecordFile = record
		case "thumb-rule":
			overrides.ThumbRule = thumbRule
		case "log-level":
			overrides.LogLevel = logLevel
		}
	})
	overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	logger := logging.New(os.Stderr, level, color)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	parts, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer parts.close()

	if cfg.Server.Listen != "" {
		srv := server.New(server.Config{Hub: parts.hub, Store: parts.store, Logger: logger})
		go func() {
			if err := srv.Run(ctx, cfg.Server.Listen); err != nil {
				logger.Error("status server stopped", "err", err)
			}
		}()
	}

	logger.Info("handrunner starting",
		"version", version,
		"source", parts.source,
		"keys", cfg.Keys.Backend,
		"display", cfg.Display.Enabled,
	)

	if cfg.Tray.Enabled && !cfg.Display.Enabled {
		return runWithTray(ctx, stop, parts.app, parts.hub, cfg.Server.Listen)
	}

	err = parts.app.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWithTray runs the tray on the main thread and starts the loop once the
// tray is ready. Quitting either one stops the other.
func runWithTray(ctx context.Context, cancel context.CancelFunc, a *app.App, hub *server.Hub, status string) error {
	t := tray.New(status)
	t.OnToggle(a.SetPaused)
	t.OnQuit(cancel)

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			t.SetLastGesture(ev.Gesture)
		}
	}()

	done := make(chan error, 1)
	t.OnReady(func() {
		go func() {
			done <- a.Run(ctx)
			t.Stop()
		}()
	})

	t.Run()
	cancel()
	return <-done
}
