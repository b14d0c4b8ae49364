package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayusman/handrunner/internal/gesture"
)

// gesturePresser is implemented by backends that also want to know which
// gesture a key stands for.
type gesturePresser interface {
	PressGesture(ctx context.Context, g gesture.Gesture, k Key) error
}

// Dispatcher maps an emitted gesture to its key and taps it.
type Dispatcher struct {
	bindings Bindings
	presser  Presser
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. Nil bindings mean DefaultBindings.
func NewDispatcher(presser Presser, bindings Bindings, logger *slog.Logger) *Dispatcher {
	if bindings == nil {
		bindings = DefaultBindings()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{bindings: bindings, presser: presser, logger: logger}
}

// KeyFor returns the key bound to g.
func (d *Dispatcher) KeyFor(g gesture.Gesture) (Key, bool) {
	k, ok := d.bindings[g]
	return k, ok
}

// Dispatch taps the key bound to g and returns it. Each successful tap is
// logged at info.
func (d *Dispatcher) Dispatch(ctx context.Context, g gesture.Gesture) (Key, error) {
	k, ok := d.bindings[g]
	if !ok {
		return "", fmt.Errorf("%s: %w", g, ErrUnboundGesture)
	}
	var err error
	if gp, ok := d.presser.(gesturePresser); ok {
		err = gp.PressGesture(ctx, g, k)
	} else {
		err = d.presser.Press(ctx, k)
	}
	if err != nil {
		return k, fmt.Errorf("press %s for %s: %w", k, g, err)
	}
	d.logger.InfoContext(ctx, "gesture dispatched", "gesture", g, "key", k)
	return k, nil
}

// Close releases the underlying presser.
func (d *Dispatcher) Close() error {
	return d.presser.Close()
}
