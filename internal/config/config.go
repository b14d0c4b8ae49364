// Package config loads handrunner settings from defaults, an optional YAML
// file and command line overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Gesture  GestureConfig  `yaml:"gesture"`
	Keys     KeysConfig     `yaml:"keys"`
	Display  DisplayConfig  `yaml:"display"`
	Motion   MotionConfig   `yaml:"motion"`
	History  HistoryConfig  `yaml:"history"`
	Server   ServerConfig   `yaml:"server"`
	Tray     TrayConfig     `yaml:"tray"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CameraConfig struct {
	Device          int      `yaml:"device"`
	Mirror          bool     `yaml:"mirror"`
	Width           int      `yaml:"width"`
	Height          int      `yaml:"height"`
	FPS             int      `yaml:"fps"`
	MaxReadFailures int      `yaml:"max_read_failures"`
	Images          []string `yaml:"images,omitempty"` // serve still images instead of a device
}

type DetectorConfig struct {
	Backend               string  `yaml:"backend"` // "mediapipe" or "replay"
	MaxHands              int     `yaml:"max_hands"`
	MinConfidence         float64 `yaml:"min_confidence"`
	MinTrackingConfidence float64 `yaml:"min_tracking_confidence"`
	Script                string  `yaml:"script,omitempty"`
	Python                string  `yaml:"python,omitempty"`
	ReplayFile            string  `yaml:"replay_file,omitempty"`
	RecordFile            string  `yaml:"record_file,omitempty"`
	IdleTimeoutMS         int     `yaml:"idle_timeout_ms"`
}

type GestureConfig struct {
	ThumbRule  string `yaml:"thumb_rule"`
	DebounceMS int    `yaml:"debounce_ms"`
}

// KeysConfig selects how key presses reach the OS. Bindings map gesture
// names to key names.
type KeysConfig struct {
	Backend         string            `yaml:"backend"` // robotgo, uinput, sendinput, plugin, log
	Bindings        map[string]string `yaml:"bindings"`
	PluginDir       string            `yaml:"plugin_dir,omitempty"`
	Plugin          string            `yaml:"plugin,omitempty"`
	PluginTimeoutMS int               `yaml:"plugin_timeout_ms"`
}

type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Window  string `yaml:"window"`
	Overlay bool   `yaml:"overlay"`
}

type MotionConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	HoldMS    int     `yaml:"hold_ms"`
}

type HistoryConfig struct {
	DB string `yaml:"db,omitempty"`
}

type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Key backends.
const (
	BackendRobotgo   = "robotgo"
	BackendUinput    = "uinput"
	BackendSendInput = "sendinput"
	BackendPlugin    = "plugin"
	BackendLog       = "log"
)

// Detector backends.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorReplay    = "replay"
)

// DefaultConfig returns the configuration that plays the runner with the
// default camera: one mirrored device, one tracked hand at 0.9 confidence,
// one second debounce, arrow keys, a preview window and nothing persisted.
func DefaultConfig() Config {
	return Config{
		Camera: CameraConfig{
			Device:          0,
			Mirror:          true,
			Width:           640,
			Height:          480,
			FPS:             30,
			MaxReadFailures: 30,
		},
		Detector: DetectorConfig{
			Backend:               DetectorMediaPipe,
			MaxHands:              1,
			MinConfidence:         0.9,
			MinTrackingConfidence: 0.5,
		},
		Gesture: GestureConfig{
			ThumbRule:  "tip-right-of-ip",
			DebounceMS: 1000,
		},
		Keys: KeysConfig{
			Backend: BackendRobotgo,
			Bindings: map[string]string{
				"left":  "left",
				"right": "right",
				"jump":  "up",
				"roll":  "down",
			},
			PluginDir:       "~/.handrunner/plugins",
			Plugin:          "keyboard",
			PluginTimeoutMS: 2000,
		},
		Display: DisplayConfig{
			Enabled: true,
			Window:  "Subway Surfers Gesture Control",
			Overlay: true,
		},
		Motion: MotionConfig{
			Enabled:   false,
			Threshold: 1.0,
			HoldMS:    2000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a YAML config file over the defaults. Unknown fields are
// rejected so typos surface as errors.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries command line values. A nil pointer means the flag
// was not given.
type FlagOverrides struct {
	CameraDevice *int
	DebounceMS   *int
	KeysBackend  *string
	Headless     *bool
	Listen       *string
	HistoryDB    *string
	ReplayFile   *string
	RecordFile   *string
	ThumbRule    *string
	LogLevel     *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.CameraDevice != nil {
		cfg.Camera.Device = *o.CameraDevice
	}
	if o.DebounceMS != nil {
		cfg.Gesture.DebounceMS = *o.DebounceMS
	}
	if o.KeysBackend != nil {
		cfg.Keys.Backend = *o.KeysBackend
	}
	if o.Headless != nil && *o.Headless {
		cfg.Display.Enabled = false
		cfg.Tray.Enabled = true
	}
	if o.Listen != nil {
		cfg.Server.Listen = *o.Listen
	}
	if o.HistoryDB != nil {
		cfg.History.DB = *o.HistoryDB
	}
	if o.ReplayFile != nil {
		cfg.Detector.Backend = DetectorReplay
		cfg.Detector.ReplayFile = *o.ReplayFile
	}
	if o.RecordFile != nil {
		cfg.Detector.RecordFile = *o.RecordFile
	}
	if o.ThumbRule != nil {
		cfg.Gesture.ThumbRule = *o.ThumbRule
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants. Call it after defaults, file and
// overrides have been applied.
func (c *Config) Validate() error {
	if c.Camera.Device < 0 {
		return errors.New("camera.device must be >= 0")
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return errors.New("camera.width and camera.height must be >= 0")
	}
	if c.Camera.MaxReadFailures <= 0 {
		return errors.New("camera.max_read_failures must be > 0")
	}

	switch c.Detector.Backend {
	case DetectorMediaPipe:
	case DetectorReplay:
		if c.Detector.ReplayFile == "" {
			return errors.New("detector.backend is replay but detector.replay_file is empty")
		}
	default:
		return fmt.Errorf("detector.backend must be %q or %q", DetectorMediaPipe, DetectorReplay)
	}
	if c.Detector.MaxHands < 1 {
		return errors.New("detector.max_hands must be >= 1")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return errors.New("detector.min_confidence must be between 0 and 1")
	}
	if c.Detector.MinTrackingConfidence < 0 || c.Detector.MinTrackingConfidence > 1 {
		return errors.New("detector.min_tracking_confidence must be between 0 and 1")
	}

	switch c.Gesture.ThumbRule {
	case "tip-right-of-ip", "tip-left-of-ip":
	default:
		return fmt.Errorf("gesture.thumb_rule %q must be tip-right-of-ip or tip-left-of-ip", c.Gesture.ThumbRule)
	}
	if c.Gesture.DebounceMS <= 0 {
		return errors.New("gesture.debounce_ms must be > 0")
	}

	switch c.Keys.Backend {
	case BackendRobotgo, BackendUinput, BackendSendInput, BackendLog:
	case BackendPlugin:
		if c.Keys.Plugin == "" {
			return errors.New("keys.backend is plugin but keys.plugin is empty")
		}
		if c.Keys.PluginTimeoutMS <= 0 {
			return errors.New("keys.plugin_timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("keys.backend %q is not one of robotgo, uinput, sendinput, plugin, log", c.Keys.Backend)
	}
	if len(c.Keys.Bindings) == 0 {
		return errors.New("keys.bindings must not be empty")
	}
	for g, k := range c.Keys.Bindings {
		if k == "" {
			return fmt.Errorf("keys.bindings.%s is empty", g)
		}
	}

	if c.Display.Enabled && c.Display.Window == "" {
		return errors.New("display.window must not be empty when the display is enabled")
	}
	if c.Motion.Enabled && c.Motion.Threshold <= 0 {
		return errors.New("motion.threshold must be > 0")
	}
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// Debounce returns the debounce interval as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Gesture.DebounceMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
