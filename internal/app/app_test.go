package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/handrunner/internal/action"
	"github.com/ayusman/handrunner/internal/capture"
	"github.com/ayusman/handrunner/internal/detector"
	"github.com/ayusman/handrunner/internal/gesture"
	"github.com/ayusman/handrunner/internal/server"
	"github.com/ayusman/handrunner/internal/store"
	"gocv.io/x/gocv"
)

// failingCamera opens as configured and never yields a frame.
type failingCamera struct {
	openErr error
	mu      sync.Mutex
	reads   int
	closed  int
}

func (c *failingCamera) Open() error { return c.openErr }
func (c *failingCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}
func (c *failingCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return nil, errors.New("device unplugged")
}
func (c *failingCamera) SetFPS(int)   {}
func (c *failingCamera) FPS() int     { return capture.DefaultFPS }
func (c *failingCamera) IsOpen() bool { return c.openErr == nil }

type fixture struct {
	app     *App
	presser *action.MockPresser
	hub     *server.Hub
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, cam capture.Camera, det detector.Detector) *fixture {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	presser := action.NewMockPresser()
	hub := server.NewHub()

	a, err := New(Config{
		Camera:     cam,
		Detector:   det,
		Dispatcher: action.NewDispatcher(presser, nil, logger),
		Debounce:   time.Second,
		Hub:        hub,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{app: a, presser: presser, hub: hub, logs: &logs}
}

func at(sec float64) time.Time {
	return time.Unix(1700000000, 0).Add(time.Duration(sec * float64(time.Second)))
}

func hands(h ...detector.HandLandmarks) []detector.HandLandmarks { return h }

func keysEqual(got []action.Key, want ...action.Key) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestNew_Validation(t *testing.T) {
	d := action.NewDispatcher(action.NewMockPresser(), nil, nil)
	cam := &failingCamera{}
	det := detector.NewMockDetector()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no camera", Config{Detector: det, Dispatcher: d}},
		{"no detector", Config{Camera: cam, Dispatcher: d}},
		{"no dispatcher", Config{Camera: cam, Detector: det}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	a, err := New(Config{Camera: cam, Detector: det, Dispatcher: d})
	if err != nil {
		t.Fatal(err)
	}
	if a.debouncer.Interval() != gesture.DefaultDebounceInterval {
		t.Errorf("default interval = %v", a.debouncer.Interval())
	}
	if a.config.MaxReadFailures != DefaultMaxReadFailures {
		t.Errorf("MaxReadFailures = %d", a.config.MaxReadFailures)
	}
	if a.config.MaxDetectFailures != DefaultMaxDetectFailures {
		t.Errorf("MaxDetectFailures = %d", a.config.MaxDetectFailures)
	}
}

func TestProcessHands_DebounceSequence(t *testing.T) {
	f := newFixture(t, &failingCamera{}, detector.NewMockDetector())
	ctx := context.Background()

	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(0))
	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(0.5))
	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(1.1))
	f.app.processHands(ctx, hands(detector.FistLandmarks()), at(1.2))

	if got := f.presser.Keys(); !keysEqual(got, action.KeyUp, action.KeyDown) {
		t.Errorf("pressed %v, want [up down]", got)
	}
	if f.app.Last() != gesture.Roll {
		t.Errorf("Last() = %s, want roll", f.app.Last())
	}
	if n := strings.Count(f.logs.String(), "gesture dispatched"); n != 2 {
		t.Errorf("logged %d dispatches, want 2", n)
	}
}

func TestProcessHands_NoHandResetsButIntervalHolds(t *testing.T) {
	f := newFixture(t, &failingCamera{}, detector.NewMockDetector())
	ctx := context.Background()

	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(0))
	f.app.processHands(ctx, nil, at(0.05))
	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(0.1))
	if got := f.presser.Keys(); !keysEqual(got, action.KeyUp) {
		t.Fatalf("pressed %v, want [up] inside the interval", got)
	}

	// After the interval the same gesture fires again because the empty
	// frame cleared the last gesture.
	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(1.2))
	if got := f.presser.Keys(); !keysEqual(got, action.KeyUp, action.KeyUp) {
		t.Errorf("pressed %v, want [up up]", got)
	}
}

func TestProcessHands_UnclassifiedHandKeepsState(t *testing.T) {
	f := newFixture(t, &failingCamera{}, detector.NewMockDetector())
	ctx := context.Background()

	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(0))
	f.app.processHands(ctx, hands(detector.ThumbsUpLandmarks()), at(0.5))
	f.app.processHands(ctx, hands(detector.OpenPalmLandmarks()), at(1.5))

	if got := f.presser.Keys(); !keysEqual(got, action.KeyUp) {
		t.Errorf("pressed %v, want a single up", got)
	}
	if f.app.debouncer.Last() != gesture.Jump {
		t.Errorf("debouncer last = %s, want jump", f.app.debouncer.Last())
	}
}

func TestProcessHands_EachHandInOrder(t *testing.T) {
	f := newFixture(t, &failingCamera{}, detector.NewMockDetector())

	f.app.processHands(context.Background(), hands(detector.IndexUpLandmarks(), detector.PinkyUpLandmarks()), at(0))

	// The second hand differs but falls inside the interval of the first.
	if got := f.presser.Keys(); !keysEqual(got, action.KeyLeft) {
		t.Errorf("pressed %v, want [left]", got)
	}
	if stats := f.hub.Stats(); stats.Frames != 1 || stats.HandsSeen != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestProcessHands_DispatchFailureStillRecorded(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	f := newFixture(t, &failingCamera{}, detector.NewMockDetector())
	f.app.config.Store = st
	f.app.startSession()
	f.presser.SetError(errors.New("no display"))

	events, unsubscribe := f.hub.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	f.app.processHands(ctx, hands(detector.PinkyUpLandmarks()), at(0))
	f.app.processHands(ctx, hands(detector.PinkyUpLandmarks()), at(0.2))

	if got := f.presser.Keys(); !keysEqual(got, action.KeyRight) {
		t.Errorf("attempted %v, want one right", got)
	}
	if !strings.Contains(f.logs.String(), "key dispatch failed") {
		t.Error("dispatch failure should be logged")
	}

	select {
	case ev := <-events:
		if ev.Gesture != "right" || ev.Key != "right" || !strings.Contains(ev.Error, "no display") {
			t.Errorf("event = %+v", ev)
		}
		if ev.Fingers != "[1,0,0,0,1]" {
			t.Errorf("fingers = %q", ev.Fingers)
		}
	default:
		t.Fatal("expected a published event")
	}

	recorded, err := st.Events().ListBySession(f.app.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 1 || recorded[0].Error == "" {
		t.Errorf("journal = %+v", recorded)
	}

	f.app.endSession()
	list, err := st.Sessions().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].EndedAt == nil {
		t.Errorf("session not closed: %+v", list)
	}
}

func TestSetPaused(t *testing.T) {
	f := newFixture(t, &failingCamera{}, detector.NewMockDetector())

	f.app.SetPaused(true)
	if !f.app.Paused() || !f.hub.Stats().Paused {
		t.Fatal("expected paused")
	}
	if f.app.resetNeeded.Load() {
		t.Error("pausing should not request a reset")
	}

	f.app.SetPaused(false)
	if f.app.Paused() {
		t.Fatal("expected running")
	}
	if !f.app.resetNeeded.Load() {
		t.Error("resuming should request a debounce reset")
	}
}

func TestRun_CameraOpenFails(t *testing.T) {
	cam := &failingCamera{openErr: capture.ErrCameraNotOpen}
	f := newFixture(t, cam, detector.NewMockDetector())

	err := f.app.Run(context.Background())
	if !errors.Is(err, capture.ErrCameraNotOpen) {
		t.Fatalf("Run() error = %v, want ErrCameraNotOpen", err)
	}
	if cam.reads != 0 {
		t.Error("no frames should be read when open fails")
	}
}

func TestRun_ConsecutiveReadFailures(t *testing.T) {
	cam := &failingCamera{}
	det := detector.NewMockDetector()
	f := newFixture(t, cam, det)
	f.app.config.MaxReadFailures = 5

	err := f.app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "5 consecutive failures") {
		t.Fatalf("Run() error = %v", err)
	}
	if cam.reads != 5 {
		t.Errorf("reads = %d, want 5", cam.reads)
	}
	if cam.closed != 1 {
		t.Errorf("camera closed %d times, want 1", cam.closed)
	}
	if det.Calls() != 0 {
		t.Error("detector should not run without frames")
	}
	if n := strings.Count(f.logs.String(), "frame read failed"); n != 5 {
		t.Errorf("logged %d read failures, want 5", n)
	}
}

func TestRun_Canceled(t *testing.T) {
	cam := &failingCamera{}
	f := newFixture(t, cam, detector.NewMockDetector())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.app.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cam.closed != 1 {
		t.Errorf("camera closed %d times, want 1", cam.closed)
	}
	if !f.presser.Closed() {
		t.Error("dispatcher should be closed")
	}
}

func TestIsQuitKey(t *testing.T) {
	tests := []struct {
		key  int
		want bool
	}{
		{'q', true},
		{'q' | 0x100000, true},
		{'Q', false},
		{-1, false},
		{'x', false},
	}
	for _, tt := range tests {
		if got := isQuitKey(tt.key); got != tt.want {
			t.Errorf("isQuitKey(%#x) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
