// Package action turns emitted gestures into single key taps.
package action

import (
	"fmt"
	"sort"

	"github.com/ayusman/handrunner/internal/gesture"
)

// Key is a keyboard key name understood by every Presser.
type Key string

const (
	KeyLeft  Key = "left"
	KeyRight Key = "right"
	KeyUp    Key = "up"
	KeyDown  Key = "down"
)

// Keys lists the supported keys.
var Keys = []Key{KeyLeft, KeyRight, KeyUp, KeyDown}

// ParseKey validates a key name.
func ParseKey(name string) (Key, error) {
	for _, k := range Keys {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown key %q", name)
}

// Bindings maps gestures to the key they tap.
type Bindings map[gesture.Gesture]Key

// DefaultBindings is the runner layout: lanes on left/right, jump up, roll down.
func DefaultBindings() Bindings {
	return Bindings{
		gesture.Left:  KeyLeft,
		gesture.Right: KeyRight,
		gesture.Jump:  KeyUp,
		gesture.Roll:  KeyDown,
	}
}

// ParseBindings converts gesture and key names, as found in config files.
func ParseBindings(names map[string]string) (Bindings, error) {
	gestures := make([]string, 0, len(names))
	for g := range names {
		gestures = append(gestures, g)
	}
	sort.Strings(gestures)

	b := make(Bindings, len(names))
	for _, name := range gestures {
		g, ok := gesture.Parse(name)
		if !ok || g == gesture.None {
			return nil, fmt.Errorf("binding: unknown gesture %q", name)
		}
		k, err := ParseKey(names[name])
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		b[g] = k
	}
	return b, nil
}
