package detector

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrReplayExhausted is returned by ReplayDetector once every recorded frame
// has been played back.
var ErrReplayExhausted = errors.New("replay exhausted")

// ReplayDetector plays back landmark results recorded in the landmark service
// line format. The frame passed to Detect is ignored.
type ReplayDetector struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
	stamp   int64
	mu      sync.Mutex
}

// NewReplayDetector reads recorded results from r. If r is an io.Closer it is
// closed by Close.
func NewReplayDetector(r io.Reader) *ReplayDetector {
	d := &ReplayDetector{scanner: bufio.NewScanner(r)}
	d.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// OpenReplay opens a recording file for playback.
func OpenReplay(path string) (*ReplayDetector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return NewReplayDetector(f), nil
}

// Detect returns the hands recorded for the next frame. Blank lines are skipped.
func (d *ReplayDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for d.scanner.Scan() {
		d.line++
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		hands, stamp, err := decodeFrame(line)
		if err != nil {
			return nil, fmt.Errorf("replay line %d: %w", d.line, err)
		}
		d.stamp = stamp
		return hands, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay line %d: %w", d.line+1, err)
	}
	return nil, ErrReplayExhausted
}

// FrameTime returns the recorded time of the frame last returned by Detect.
// It reports false when that line carried no timestamp.
func (d *ReplayDetector) FrameTime() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stamp == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(d.stamp), true
}

// Close releases the underlying reader.
func (d *ReplayDetector) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Recorder wraps a Detector and writes every successful result as a replay line.
type Recorder struct {
	Detector
	w   io.Writer
	now func() time.Time
	mu  sync.Mutex
}

// NewRecorder records the results of d to w.
func NewRecorder(d Detector, w io.Writer) *Recorder {
	return &Recorder{Detector: d, w: w, now: time.Now}
}

// Detect delegates to the wrapped detector and records its answer.
func (r *Recorder) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	hands, err := r.Detector.Detect(frame)
	if err != nil {
		return nil, err
	}

	line, err := encodeFrame(hands, r.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("encode recording: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write recording: %w", err)
	}
	return hands, nil
}

// Close closes the wrapped detector and, if it is one, the output writer.
func (r *Recorder) Close() error {
	err := r.Detector.Close()
	if c, ok := r.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
