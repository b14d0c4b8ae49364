package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// BlankCamera produces black frames of a fixed size. It stands in for a
// device when landmarks come from a replay rather than from the picture.
// Frames are not paced: a replay runs as fast as the loop and takes its
// timing from the recorded timestamps. FPS is reported but not applied.
type BlankCamera struct {
	width, height int
	fps           int
	running       bool
	mu            sync.Mutex
}

// NewBlankCamera creates a BlankCamera. Non-positive sizes use the defaults.
func NewBlankCamera(width, height int) *BlankCamera {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &BlankCamera{width: width, height: height, fps: DefaultFPS}
}

func (c *BlankCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

func (c *BlankCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *BlankCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil, ErrCameraNotOpen
	}
	mat := gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3)
	return &mat, nil
}

func (c *BlankCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *BlankCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *BlankCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
