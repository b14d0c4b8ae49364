// Package tray provides the system tray menu used when handrunner runs
// without a preview window.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray shows the pause toggle, the last dispatched gesture, an optional
// status address and a quit item.
type Tray struct {
	onToggle func(paused bool)
	onQuit   func()
	onReady  func()
	status   string
	paused   bool
	mu       sync.RWMutex

	// quit stops the tray loop; systray.Quit unless replaced in tests.
	quit func()

	ready     chan struct{}
	readyOnce sync.Once

	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a Tray in the running state. status, when not empty, is shown
// as a disabled menu item (the status server address).
func New(status string) *Tray {
	return &Tray{
		status: status,
		quit:   systray.Quit,
		ready:  make(chan struct{}),
	}
}

// OnToggle sets the callback invoked with the new pause state.
func (t *Tray) OnToggle(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnQuit sets the callback invoked when Quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// OnReady sets the callback invoked once the menu is built. Work that may
// call Stop should be started from here.
func (t *Tray) OnReady(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReady = fn
}

// Run starts the tray and blocks until Quit. It must run on the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.build, func() {})
}

// Stop ends Run from any goroutine. It waits until the tray is ready, since
// quitting earlier is lost on some platforms and Run never returns.
func (t *Tray) Stop() {
	<-t.ready
	t.quit()
}

func (t *Tray) build() {
	systray.SetTitle("Handrunner")
	systray.SetTooltip("Hand gesture runner control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.paused), "Pause or resume gesture control")
	systray.AddSeparator()
	t.menuLastGesture = systray.AddMenuItem("Last: none", "Last dispatched gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()

	if t.status != "" {
		item := systray.AddMenuItem("Status: "+t.status, "Status server address")
		item.Disable()
	}
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit handrunner")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()

	t.handleReady()
}

func (t *Tray) handleReady() {
	t.readyOnce.Do(func() { close(t.ready) })

	t.mu.RLock()
	callback := t.onReady
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func toggleTitle(paused bool) string {
	if paused {
		return "○ Paused"
	}
	return "● Running"
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(paused))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Outside the lock so the callback may call back into the tray.
	if callback != nil {
		callback(paused)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	t.quit()
}

// SetLastGesture updates the last gesture item.
func (t *Tray) SetLastGesture(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastGesture == nil {
		return
	}
	if name == "" {
		name = "none"
	}
	t.menuLastGesture.SetTitle("Last: " + name)
}

// IsPaused returns the current pause state.
func (t *Tray) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}
