package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Script is the path to the landmark service script. Empty means search
	// the usual locations.
	Script string

	// Python is the interpreter used to run Script. Empty means a project
	// virtualenv if one exists, otherwise python3.
	Python string

	// IdleTimeoutMs shuts the service down after this long without a frame.
	// Zero keeps it running until Close.
	IdleTimeoutMs int
}

// DefaultConfig returns the configuration the runner controls are tuned for:
// a single tracked hand and a high detection threshold so that half-visible
// hands do not produce spurious poses.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.9,
		MinTrackingConf: 0.5,
	}
}
