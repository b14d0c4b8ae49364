package action

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrUnsupported is returned by backends not available on this platform.
	ErrUnsupported = errors.New("key backend not supported on this platform")
	// ErrUnboundGesture is returned when a gesture has no key binding.
	ErrUnboundGesture = errors.New("gesture has no key binding")
)

// Presser taps one key: a single press and release, no hold or repeat.
type Presser interface {
	Press(ctx context.Context, k Key) error
	Close() error
}

// LogPresser only logs key taps. It backs dry runs and headless replays.
type LogPresser struct {
	logger *slog.Logger
}

// NewLogPresser creates a LogPresser. A nil logger means slog.Default().
func NewLogPresser(logger *slog.Logger) *LogPresser {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPresser{logger: logger}
}

func (p *LogPresser) Press(ctx context.Context, k Key) error {
	p.logger.InfoContext(ctx, "key tap (dry run)", "key", k)
	return nil
}

func (p *LogPresser) Close() error { return nil }
