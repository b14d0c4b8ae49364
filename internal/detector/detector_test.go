package detector

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxHands != 1 {
		t.Errorf("MaxHands = %d, want 1", cfg.MaxHands)
	}
	if cfg.MinConfidence != 0.9 {
		t.Errorf("MinConfidence = %v, want 0.9", cfg.MinConfidence)
	}
}

func TestHandConnections_InRange(t *testing.T) {
	for _, c := range HandConnections {
		if c.From < 0 || c.From >= NumLandmarks || c.To < 0 || c.To >= NumLandmarks {
			t.Errorf("connection %v out of range", c)
		}
	}
	if len(HandConnections) != 21 {
		t.Errorf("len(HandConnections) = %d, want 21", len(HandConnections))
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks()})

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		wantErr := errors.New("detection failed")
		mock.SetError(wantErr)

		_, err := mock.Detect(nil)
		if !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
	})

	t.Run("plays sequence then runs dry", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetSequence([][]HandLandmarks{
			{OpenPalmLandmarks()},
			nil,
			{FistLandmarks()},
		})

		wantCounts := []int{1, 0, 1, 0, 0}
		for i, want := range wantCounts {
			hands, err := mock.Detect(nil)
			if err != nil {
				t.Fatalf("call %d: unexpected error: %v", i, err)
			}
			if len(hands) != want {
				t.Errorf("call %d: got %d hands, want %d", i, len(hands), want)
			}
		}
		if mock.Calls() != len(wantCounts) {
			t.Errorf("Calls() = %d, want %d", mock.Calls(), len(wantCounts))
		}
	})
}

func TestFixtures_FingerGeometry(t *testing.T) {
	tests := []struct {
		name     string
		hand     HandLandmarks
		thumbOut bool
		up       [4]bool
	}{
		{"open palm", OpenPalmLandmarks(), true, [4]bool{true, true, true, true}},
		{"fist", FistLandmarks(), true, [4]bool{false, false, false, false}},
		{"index up", IndexUpLandmarks(), true, [4]bool{true, false, false, false}},
		{"pinky up", PinkyUpLandmarks(), true, [4]bool{false, false, false, true}},
		{"thumbs up", ThumbsUpLandmarks(), false, [4]bool{false, false, false, false}},
	}

	tips := [4]int{IndexTip, MiddleTip, RingTip, PinkyTip}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.hand.Points
			if got := p[ThumbTip].X > p[ThumbIP].X; got != tt.thumbOut {
				t.Errorf("thumb out = %v, want %v", got, tt.thumbOut)
			}
			for i, tip := range tips {
				if got := p[tip].Y < p[tip-2].Y; got != tt.up[i] {
					t.Errorf("finger %d up = %v, want %v", i+1, got, tt.up[i])
				}
			}
		})
	}
}

func TestDecodeFrame(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		hands, ts, err := decodeFrame([]byte(`{"hands":[]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected 0 hands, got %d", len(hands))
		}
		if ts != 0 {
			t.Errorf("timestamp = %d, want 0 when absent", ts)
		}
	})

	t.Run("short hand rejected", func(t *testing.T) {
		_, _, err := decodeFrame([]byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0}]}]}`))
		if err == nil {
			t.Fatal("expected error for hand with 1 landmark")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, _, err := decodeFrame([]byte(`not json`)); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		palm := OpenPalmLandmarks()
		line, err := encodeFrame([]HandLandmarks{palm}, 42)
		if err != nil {
			t.Fatalf("encodeFrame() error = %v", err)
		}
		hands, ts, err := decodeFrame(line)
		if err != nil {
			t.Fatalf("decodeFrame() error = %v", err)
		}
		if len(hands) != 1 || hands[0] != palm {
			t.Errorf("round trip mismatch: got %+v", hands)
		}
		if ts != 42 {
			t.Errorf("timestamp = %d, want 42", ts)
		}
	})
}

func TestReplayDetector_File(t *testing.T) {
	d, err := OpenReplay(filepath.Join("testdata", "session.jsonl"))
	if err != nil {
		t.Fatalf("OpenReplay() error = %v", err)
	}
	defer d.Close()

	if _, ok := d.FrameTime(); ok {
		t.Error("FrameTime() before the first frame should report false")
	}

	wantCounts := []int{1, 1, 0, 1, 1, 0, 1}
	var prev time.Time
	for i, want := range wantCounts {
		hands, err := d.Detect(nil)
		if err != nil {
			t.Fatalf("frame %d: Detect() error = %v", i, err)
		}
		if len(hands) != want {
			t.Errorf("frame %d: got %d hands, want %d", i, len(hands), want)
		}
		at, ok := d.FrameTime()
		if !ok {
			t.Fatalf("frame %d: missing timestamp", i)
		}
		if i > 0 && at.Sub(prev) != 600*time.Millisecond {
			t.Errorf("frame %d: %v after previous, want 600ms", i, at.Sub(prev))
		}
		prev = at
	}

	if _, err := d.Detect(nil); !errors.Is(err, ErrReplayExhausted) {
		t.Errorf("expected ErrReplayExhausted, got %v", err)
	}
}

func TestReplayDetector_BadLine(t *testing.T) {
	d := NewReplayDetector(strings.NewReader("\n{\"hands\":[]}\n{broken\n"))

	if _, err := d.Detect(nil); err != nil {
		t.Fatalf("first frame: unexpected error %v", err)
	}
	_, err := d.Detect(nil)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error should name line 3, got %v", err)
	}
}

func TestRecorder_ProducesReplayableOutput(t *testing.T) {
	mock := NewMockDetector()
	mock.SetSequence([][]HandLandmarks{
		{IndexUpLandmarks()},
		nil,
		{PinkyUpLandmarks()},
	})

	var buf bytes.Buffer
	rec := NewRecorder(mock, &buf)
	for i := 0; i < 3; i++ {
		if _, err := rec.Detect(nil); err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
	}

	replay := NewReplayDetector(&buf)
	got, err := replay.Detect(nil)
	if err != nil {
		t.Fatalf("replay Detect() error = %v", err)
	}
	if len(got) != 1 || got[0] != IndexUpLandmarks() {
		t.Errorf("first replayed frame mismatch: %+v", got)
	}
	if got, _ := replay.Detect(nil); len(got) != 0 {
		t.Errorf("second replayed frame should be empty, got %d hands", len(got))
	}
	if got, _ := replay.Detect(nil); len(got) != 1 || got[0] != PinkyUpLandmarks() {
		t.Errorf("third replayed frame mismatch: %+v", got)
	}
}

func TestRecorder_PropagatesError(t *testing.T) {
	mock := NewMockDetector()
	mock.SetError(errors.New("boom"))

	var buf bytes.Buffer
	rec := NewRecorder(mock, &buf)
	if _, err := rec.Detect(nil); err == nil {
		t.Fatal("expected error")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be recorded on error, got %q", buf.String())
	}
}

func TestNewMediaPipeDetector(t *testing.T) {
	t.Run("missing script", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Script = filepath.Join(t.TempDir(), "absent.py")
		if _, err := NewMediaPipeDetector(cfg, nil); err == nil {
			t.Fatal("expected error for missing script")
		}
	})

	t.Run("args carry config", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), scriptName)
		if err := os.WriteFile(script, []byte("# stub\n"), 0644); err != nil {
			t.Fatalf("write script: %v", err)
		}
		cfg := DefaultConfig()
		cfg.Script = script

		d, err := NewMediaPipeDetector(cfg, nil)
		if err != nil {
			t.Fatalf("NewMediaPipeDetector() error = %v", err)
		}
		defer d.Close()

		args := strings.Join(d.args(), " ")
		for _, want := range []string{"--max-hands 1", "--min-detection-confidence 0.9", "--min-tracking-confidence 0.5"} {
			if !strings.Contains(args, want) {
				t.Errorf("args %q missing %q", args, want)
			}
		}
	})

	t.Run("detect rejects nil frame", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), scriptName)
		os.WriteFile(script, []byte("# stub\n"), 0644)
		cfg := DefaultConfig()
		cfg.Script = script

		d, err := NewMediaPipeDetector(cfg, nil)
		if err != nil {
			t.Fatalf("NewMediaPipeDetector() error = %v", err)
		}
		if _, err := d.Detect(nil); err == nil {
			t.Error("expected error for nil frame")
		}
	})
}

func TestMediaPipeDetector_RestartsAfterServiceDies(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	dir := t.TempDir()
	starts := filepath.Join(dir, "starts")
	script := filepath.Join(dir, scriptName)
	body := "echo started >> '" + starts + "'\nexit 0\n"
	if err := os.WriteFile(script, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Script = script
	cfg.Python = "/bin/sh"
	d, err := NewMediaPipeDetector(cfg, nil)
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	defer d.Close()

	frame := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < 2; i++ {
		if _, err := d.Detect(&frame); err == nil {
			t.Fatalf("Detect #%d: expected error from exited service", i+1)
		}
		if d.started {
			t.Fatalf("Detect #%d: dead service still marked started", i+1)
		}
	}

	data, err := os.ReadFile(starts)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "started"); n != 2 {
		t.Errorf("service started %d times, want 2", n)
	}
}
