package server

import (
	"sync"
	"time"
)

// Event is one dispatched gesture as seen by status clients.
type Event struct {
	Gesture string    `json:"gesture"`
	Key     string    `json:"key"`
	Fingers string    `json:"fingers"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Started     time.Time      `json:"started"`
	Frames      int64          `json:"frames"`
	HandsSeen   int64          `json:"hands_seen"`
	Counts      map[string]int `json:"counts"`
	LastGesture string         `json:"last_gesture,omitempty"`
	LastAt      *time.Time     `json:"last_at,omitempty"`
	Paused      bool           `json:"paused"`
}

const subscriberBuffer = 16

// Hub is the only state shared between the detection loop and the status
// server. Every method is safe for concurrent use and none of them block
// on clients.
type Hub struct {
	mu       sync.Mutex
	stats    Stats
	frame    []byte
	frameSeq uint64
	watchers int
	subs     map[chan Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		stats: Stats{
			Started: time.Now(),
			Counts:  make(map[string]int),
		},
		subs: make(map[chan Event]struct{}),
	}
}

// ObserveFrame counts one processed frame with the given number of hands.
func (h *Hub) ObserveFrame(hands int) {
	h.mu.Lock()
	h.stats.Frames++
	h.stats.HandsSeen += int64(hands)
	h.mu.Unlock()
}

// SetPaused records the pause state.
func (h *Hub) SetPaused(paused bool) {
	h.mu.Lock()
	h.stats.Paused = paused
	h.mu.Unlock()
}

// Publish records ev and fans it out to subscribers. A subscriber whose
// buffer is full misses the event.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.Counts[ev.Gesture]++
	h.stats.LastGesture = ev.Gesture
	at := ev.Time
	h.stats.LastAt = &at

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers for events. Call the returned func to unsubscribe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of event subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Stats returns a copy of the counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.stats
	s.Counts = make(map[string]int, len(h.stats.Counts))
	for g, n := range h.stats.Counts {
		s.Counts[g] = n
	}
	if h.stats.LastAt != nil {
		at := *h.stats.LastAt
		s.LastAt = &at
	}
	return s
}

// SetFrame stores the latest rendered frame as JPEG bytes. The Hub keeps
// jpeg; callers must not modify it afterwards.
func (h *Hub) SetFrame(jpeg []byte) {
	h.mu.Lock()
	h.frame = jpeg
	h.frameSeq++
	h.mu.Unlock()
}

// Frame returns the latest JPEG and its sequence number, which increases
// with every SetFrame.
func (h *Hub) Frame() ([]byte, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame, h.frameSeq
}

// Watching reports whether any stream client wants frames, so the loop can
// skip JPEG encoding otherwise.
func (h *Hub) Watching() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.watchers > 0
}

func (h *Hub) addWatcher(delta int) {
	h.mu.Lock()
	h.watchers += delta
	h.mu.Unlock()
}
