package action

import (
	"context"
	"sync"
)

// MockPresser records taps for tests.
type MockPresser struct {
	mu     sync.Mutex
	keys   []Key
	err    error
	closed bool
}

// NewMockPresser creates an empty MockPresser.
func NewMockPresser() *MockPresser {
	return &MockPresser{}
}

// SetError makes subsequent presses fail with err.
func (p *MockPresser) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Keys returns the keys pressed so far, including failed attempts.
func (p *MockPresser) Keys() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Key, len(p.keys))
	copy(out, p.keys)
	return out
}

// Closed reports whether Close was called.
func (p *MockPresser) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *MockPresser) Press(_ context.Context, k Key) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, k)
	return p.err
}

func (p *MockPresser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
