package gesture

import "time"

// DefaultDebounceInterval is the minimum gap between two emitted gestures.
const DefaultDebounceInterval = time.Second

// Debouncer turns a stream of per-frame classifications into discrete
// emissions. A gesture is emitted when it differs from the last emitted
// gesture and strictly more than the interval has passed since the last
// emission. It is not safe for concurrent use; the detection loop owns it.
type Debouncer struct {
	interval time.Duration
	last     Gesture
	lastEmit time.Time
	emitted  bool
}

// NewDebouncer creates a Debouncer. A non-positive interval selects
// DefaultDebounceInterval.
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &Debouncer{interval: interval}
}

// Observe reports whether g, seen at now, should be emitted, and records the
// emission if so. None is never emitted and leaves the state untouched: an
// unrecognized pose of a visible hand does not clear the last gesture.
func (d *Debouncer) Observe(g Gesture, now time.Time) bool {
	if g == None || g == d.last {
		return false
	}
	if d.emitted && now.Sub(d.lastEmit) <= d.interval {
		return false
	}

	d.last = g
	d.lastEmit = now
	d.emitted = true
	return true
}

// Reset forgets the last gesture. The loop calls it on frames without a
// hand. The time of the last emission is kept, so the interval still applies.
func (d *Debouncer) Reset() {
	d.last = None
}

// Last returns the last emitted gesture, or None after a reset.
func (d *Debouncer) Last() Gesture {
	return d.last
}

// LastEmit returns the time of the last emission. ok is false if nothing
// has been emitted yet.
func (d *Debouncer) LastEmit() (t time.Time, ok bool) {
	return d.lastEmit, d.emitted
}

// Interval returns the configured debounce interval.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}
