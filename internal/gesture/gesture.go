// Package gesture turns hand landmarks into runner controls: finger states,
// a fixed pose table and the debounce that decides when a pose becomes a press.
package gesture

// Gesture is a classified hand pose. The zero value is None.
type Gesture string

const (
	// None means the pose matched no entry in the table.
	None Gesture = ""
	// Roll is a fist with the thumb out.
	Roll Gesture = "roll"
	// Jump is an open palm.
	Jump Gesture = "jump"
	// Left is thumb and index finger extended.
	Left Gesture = "left"
	// Right is thumb and pinky extended.
	Right Gesture = "right"
)

// All lists every gesture that can be emitted, in table order.
var All = []Gesture{Roll, Jump, Left, Right}

// String returns the gesture name, or "none".
func (g Gesture) String() string {
	if g == None {
		return "none"
	}
	return string(g)
}

// Parse returns the gesture with the given name. "none" and "" parse to None.
func Parse(name string) (Gesture, bool) {
	switch name {
	case "", "none":
		return None, true
	}
	for _, g := range All {
		if string(g) == name {
			return g, true
		}
	}
	return None, false
}
