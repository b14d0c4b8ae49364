package app

import (
	"gocv.io/x/gocv"
)

// DefaultWindowTitle is the preview window name.
const DefaultWindowTitle = "Subway Surfers Gesture Control"

// Display shows rendered frames and reports whether the user asked to quit.
type Display interface {
	Show(frame *gocv.Mat) (quit bool)
	Close() error
}

// WindowDisplay is a native OpenCV window. Pressing 'q' in it quits. It
// must be used from the goroutine that created it.
type WindowDisplay struct {
	window *gocv.Window
}

// NewWindowDisplay opens a window with the given title.
func NewWindowDisplay(title string) *WindowDisplay {
	if title == "" {
		title = DefaultWindowTitle
	}
	return &WindowDisplay{window: gocv.NewWindow(title)}
}

// Show draws frame and polls the keyboard for one millisecond.
func (d *WindowDisplay) Show(frame *gocv.Mat) bool {
	d.window.IMShow(*frame)
	return isQuitKey(d.window.WaitKey(1))
}

// isQuitKey reports whether a WaitKey result is 'q'. Some highgui backends
// set modifier bits above the low byte.
func isQuitKey(key int) bool {
	return key&0xFF == 'q'
}

func (d *WindowDisplay) Close() error {
	return d.window.Close()
}

// NullDisplay discards frames. Used headless and in tests.
type NullDisplay struct{}

func (NullDisplay) Show(*gocv.Mat) bool { return false }
func (NullDisplay) Close() error        { return nil }
