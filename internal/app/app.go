// Package app runs the capture, detect, classify, debounce and dispatch loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ayusman/handrunner/internal/action"
	"github.com/ayusman/handrunner/internal/capture"
	"github.com/ayusman/handrunner/internal/detector"
	"github.com/ayusman/handrunner/internal/gesture"
	"github.com/ayusman/handrunner/internal/server"
	"github.com/ayusman/handrunner/internal/store"
	"gocv.io/x/gocv"
)

// DefaultMaxReadFailures is how many consecutive frame read errors Run
// tolerates before giving up.
const DefaultMaxReadFailures = 30

// DefaultMaxDetectFailures is how many consecutive detector errors Run
// tolerates before giving up.
const DefaultMaxDetectFailures = 30

// Config wires the loop's collaborators. Camera, Detector and Dispatcher are
// required; everything else is optional.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Dispatcher *action.Dispatcher

	ThumbRule gesture.ThumbRule
	Debounce  time.Duration

	Display Display // nil means NullDisplay
	Overlay bool

	Motion *capture.MotionGate
	Hub    *server.Hub
	Store  *store.Store
	Source string // session source recorded in the journal

	MaxReadFailures   int
	MaxDetectFailures int
	Logger            *slog.Logger
	Now               func() time.Time
}

// frameTimer is implemented by detectors that know when their frame was
// captured, such as replays.
type frameTimer interface {
	FrameTime() (time.Time, bool)
}

// App owns the single-threaded detection loop. Only SetPaused and Paused
// may be called from other goroutines.
type App struct {
	config    Config
	extractor *gesture.Extractor
	debouncer *gesture.Debouncer
	logger    *slog.Logger

	paused      atomic.Bool
	resetNeeded atomic.Bool

	session        *store.Session
	last           gesture.Gesture
	detectFailures int
}

// New validates config and creates an App.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if config.Dispatcher == nil {
		return nil, errors.New("app: dispatcher is required")
	}
	if config.Display == nil {
		config.Display = NullDisplay{}
	}
	if config.MaxReadFailures <= 0 {
		config.MaxReadFailures = DefaultMaxReadFailures
	}
	if config.MaxDetectFailures <= 0 {
		config.MaxDetectFailures = DefaultMaxDetectFailures
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.ThumbRule == "" {
		config.ThumbRule = gesture.ThumbTipRightOfIP
	}
	if config.Source == "" {
		config.Source = "camera"
	}

	return &App{
		config:    config,
		extractor: gesture.NewExtractor(config.ThumbRule),
		debouncer: gesture.NewDebouncer(config.Debounce),
		logger:    config.Logger,
	}, nil
}

// SetPaused stops or resumes gesture processing. Frames keep being read and
// shown while paused. Resuming clears the debounce state.
func (a *App) SetPaused(paused bool) {
	was := a.paused.Swap(paused)
	if was && !paused {
		a.resetNeeded.Store(true)
	}
	if a.config.Hub != nil {
		a.config.Hub.SetPaused(paused)
	}
	a.logger.Info("gesture control", "paused", paused)
}

// Paused reports whether processing is paused.
func (a *App) Paused() bool {
	return a.paused.Load()
}

// Run opens the camera and processes frames until ctx is canceled, the user
// quits from the display, a replay runs out or the camera keeps failing.
// Everything the loop uses is released before Run returns.
func (a *App) Run(ctx context.Context) error {
	cam := a.config.Camera
	if err := cam.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer a.closeAll()

	a.startSession()
	defer a.endSession()

	a.logger.Info("detection loop started",
		"debounce", a.debouncer.Interval(),
		"thumb_rule", a.config.ThumbRule,
		"source", a.config.Source,
	)

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			a.logger.Info("detection loop stopping", "reason", "canceled")
			return nil
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			failures++
			a.logger.Warn("frame read failed", "err", err, "consecutive", failures)
			if failures >= a.config.MaxReadFailures {
				return fmt.Errorf("read frame: %d consecutive failures: %w", failures, err)
			}
			continue
		}
		failures = 0

		quit, err := a.step(ctx, frame)
		frame.Close()
		if errors.Is(err, detector.ErrReplayExhausted) {
			a.logger.Info("replay finished")
			return nil
		}
		if err != nil {
			return err
		}
		if quit {
			a.logger.Info("detection loop stopping", "reason", "quit key")
			return nil
		}
	}
}

// step handles one frame and renders it.
func (a *App) step(ctx context.Context, frame *gocv.Mat) (bool, error) {
	if a.resetNeeded.Swap(false) {
		a.debouncer.Reset()
	}

	var hands []detector.HandLandmarks
	if !a.paused.Load() && a.motionAllows(frame) {
		var err error
		hands, err = a.config.Detector.Detect(frame)
		if errors.Is(err, detector.ErrReplayExhausted) {
			return false, err
		}
		if err != nil {
			a.detectFailures++
			a.logger.Warn("hand detection failed", "err", err, "consecutive", a.detectFailures)
			if a.detectFailures >= a.config.MaxDetectFailures {
				return false, fmt.Errorf("detect hands: %d consecutive failures: %w", a.detectFailures, err)
			}
		} else {
			a.detectFailures = 0
			a.processHands(ctx, hands, a.frameTime())
		}
	}

	return a.render(frame, hands), nil
}

func (a *App) motionAllows(frame *gocv.Mat) bool {
	if a.config.Motion == nil {
		return true
	}
	return a.config.Motion.Allow(frame, a.config.Now())
}

func (a *App) frameTime() time.Time {
	if ft, ok := a.config.Detector.(frameTimer); ok {
		if t, ok := ft.FrameTime(); ok {
			return t
		}
	}
	return a.config.Now()
}

// processHands runs extraction, classification and the debouncer over one
// frame's hands. An empty frame resets the debounce state; a hand whose pose
// matches nothing leaves it alone.
func (a *App) processHands(ctx context.Context, hands []detector.HandLandmarks, now time.Time) {
	if a.config.Hub != nil {
		a.config.Hub.ObserveFrame(len(hands))
	}

	if len(hands) == 0 {
		a.debouncer.Reset()
		return
	}

	for i := range hands {
		fingers := a.extractor.Fingers(&hands[i])
		g := gesture.Classify(fingers)
		a.logger.Debug("hand", "index", i, "fingers", fingers, "gesture", g)

		if g == gesture.None {
			continue
		}
		if !a.debouncer.Observe(g, now) {
			continue
		}
		a.emit(ctx, g, fingers, now)
	}
}

// emit dispatches g and records the attempt whether or not the tap worked.
func (a *App) emit(ctx context.Context, g gesture.Gesture, fingers gesture.FingerState, now time.Time) {
	key, err := a.config.Dispatcher.Dispatch(ctx, g)
	errText := ""
	if err != nil {
		errText = err.Error()
		a.logger.Warn("key dispatch failed", "gesture", g, "err", err)
	}
	a.last = g

	if a.config.Hub != nil {
		a.config.Hub.Publish(server.Event{
			Gesture: g.String(),
			Key:     string(key),
			Fingers: fingers.String(),
			Error:   errText,
			Time:    now,
		})
	}

	if a.session != nil {
		err := a.config.Store.Events().Create(&store.Event{
			SessionID:  a.session.ID,
			Gesture:    g.String(),
			Key:        string(key),
			Fingers:    fingers.String(),
			Error:      errText,
			OccurredAt: now,
		})
		if err != nil {
			a.logger.Warn("history write failed", "err", err)
		}
	}
}

// render draws the overlay, feeds the status stream and shows the frame.
func (a *App) render(frame *gocv.Mat, hands []detector.HandLandmarks) bool {
	if a.config.Overlay {
		DrawOverlay(frame, hands, a.last)
	}

	if hub := a.config.Hub; hub != nil && hub.Watching() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
		if err != nil {
			a.logger.Debug("frame encode failed", "err", err)
		} else {
			// Copy out of the native buffer before releasing it.
			hub.SetFrame(append([]byte(nil), buf.GetBytes()...))
			buf.Close()
		}
	}

	return a.config.Display.Show(frame)
}

func (a *App) startSession() {
	if a.config.Store == nil {
		return
	}
	sess, err := a.config.Store.Sessions().Start(a.config.Source, a.config.Now())
	if err != nil {
		a.logger.Warn("history session not started", "err", err)
		return
	}
	a.session = sess
	a.logger.Debug("history session started", "session", sess.ID)
}

func (a *App) endSession() {
	if a.session == nil {
		return
	}
	if err := a.config.Store.Sessions().End(a.session.ID, a.config.Now()); err != nil {
		a.logger.Warn("history session not closed", "err", err)
	}
	a.session = nil
}

func (a *App) closeAll() {
	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("camera close failed", "err", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		a.logger.Warn("detector close failed", "err", err)
	}
	if err := a.config.Display.Close(); err != nil {
		a.logger.Warn("display close failed", "err", err)
	}
	if err := a.config.Dispatcher.Close(); err != nil {
		a.logger.Warn("key backend close failed", "err", err)
	}
	if a.config.Motion != nil {
		a.config.Motion.Close()
	}
}

// Last returns the last dispatched gesture.
func (a *App) Last() gesture.Gesture {
	return a.last
}
