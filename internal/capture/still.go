package capture

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/disintegration/gift"
	"gocv.io/x/gocv"
)

// StillCamera serves a fixed list of images as frames, cycling through them.
// It is used to try poses from photos without a webcam.
type StillCamera struct {
	images  []image.Image
	index   int
	fps     int
	running bool
	pace    pacer
	mu      sync.Mutex
}

// NewStillCamera builds a camera from decoded images. When mirror is set each
// image is flipped horizontally once, up front, to match a live mirrored feed.
func NewStillCamera(images []image.Image, mirror bool) *StillCamera {
	frames := make([]image.Image, len(images))
	for i, img := range images {
		frames[i] = toRGBA(img)
		if mirror {
			frames[i] = MirrorImage(frames[i])
		}
	}
	return &StillCamera{images: frames, fps: DefaultFPS}
}

// LoadStillCamera decodes PNG or JPEG files into a StillCamera.
func LoadStillCamera(paths []string, mirror bool) (*StillCamera, error) {
	if len(paths) == 0 {
		return nil, errors.New("no images given")
	}
	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open image: %w", err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode image %s: %w", p, err)
		}
		images = append(images, img)
	}
	return NewStillCamera(images, mirror), nil
}

// MirrorImage returns img flipped around its vertical axis.
func MirrorImage(img image.Image) *image.RGBA {
	g := gift.New(gift.FlipHorizontal())
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func (c *StillCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	c.pace.reset()
	return nil
}

func (c *StillCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame waits for the next frame slot at the configured FPS and
// converts the next image to a BGR Mat.
func (c *StillCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil, ErrCameraNotOpen
	}
	delay := c.pace.wait(time.Now(), c.fps)
	c.mu.Unlock()
	time.Sleep(delay)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if len(c.images) == 0 {
		return nil, errors.New("no images available")
	}

	img := c.images[c.index%len(c.images)]
	c.index++

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	return &mat, nil
}

func (c *StillCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *StillCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *StillCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
