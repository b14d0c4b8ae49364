package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur, applied after
	// downscaling to AnalysisWidth.
	GaussianBlurSize = 9
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// AnalysisWidth is the width frames are reduced to before differencing.
	AnalysisWidth = 160
	// DefaultMotionHold keeps the gate open this long after the last motion.
	DefaultMotionHold = 2 * time.Second
)

// MotionDetector detects motion between consecutive video frames
// using frame differencing on small blurred grayscale copies.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a new MotionDetector with the given threshold,
// the percentage of pixels that must change to count as motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion was
// detected and the percentage of pixels that changed. The first frame only
// sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	small := gocv.NewMat()
	defer small.Close()
	if gray.Cols() > AnalysisWidth {
		height := gray.Rows() * AnalysisWidth / gray.Cols()
		gocv.Resize(gray, &small, image.Point{X: AnalysisWidth, Y: height}, 0, 0, gocv.InterpolationArea)
	} else {
		gray.CopyTo(&small)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(small, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	blurred.CopyTo(&m.prevGray)

	return changePercent > m.threshold, changePercent
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// SetThreshold sets the motion detection threshold.
// Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// MotionGate decides whether a frame is worth running hand detection on.
// It opens on motion and stays open for the hold period so a pose held
// still after moving into it is still seen.
type MotionGate struct {
	detector   *MotionDetector
	hold       time.Duration
	lastMotion time.Time
	seen       bool
}

// NewMotionGate creates a gate with the given change threshold (percent) and
// hold period. A non-positive hold uses DefaultMotionHold.
func NewMotionGate(threshold float64, hold time.Duration) *MotionGate {
	if hold <= 0 {
		hold = DefaultMotionHold
	}
	return &MotionGate{
		detector: NewMotionDetector(threshold),
		hold:     hold,
	}
}

// Allow feeds frame to the motion detector and reports whether the gate is open.
func (g *MotionGate) Allow(frame *gocv.Mat, now time.Time) bool {
	if moved, _ := g.detector.Detect(frame); moved {
		g.lastMotion = now
		g.seen = true
	}
	return g.seen && now.Sub(g.lastMotion) <= g.hold
}

// Close releases the detector.
func (g *MotionGate) Close() {
	g.detector.Close()
}
