package action

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handrunner/internal/gesture"
)

func TestDefaultBindings(t *testing.T) {
	b := DefaultBindings()
	want := map[gesture.Gesture]Key{
		gesture.Left:  KeyLeft,
		gesture.Right: KeyRight,
		gesture.Jump:  KeyUp,
		gesture.Roll:  KeyDown,
	}
	if len(b) != len(want) {
		t.Fatalf("len = %d, want %d", len(b), len(want))
	}
	for g, k := range want {
		if b[g] != k {
			t.Errorf("%s -> %q, want %q", g, b[g], k)
		}
	}
	if _, ok := b[gesture.None]; ok {
		t.Error("None must not be bound")
	}
}

func TestParseBindings(t *testing.T) {
	b, err := ParseBindings(map[string]string{"jump": "up", "roll": "down", "left": "right"})
	if err != nil {
		t.Fatalf("ParseBindings() error = %v", err)
	}
	if b[gesture.Jump] != KeyUp || b[gesture.Roll] != KeyDown || b[gesture.Left] != KeyRight {
		t.Errorf("bindings = %v", b)
	}

	tests := []struct {
		name  string
		names map[string]string
	}{
		{"unknown gesture", map[string]string{"wave": "up"}},
		{"none gesture", map[string]string{"none": "up"}},
		{"unknown key", map[string]string{"jump": "space"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBindings(tt.names); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	for _, k := range Keys {
		got, err := ParseKey(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKey(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKey("enter"); err == nil {
		t.Error("expected error for enter")
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	presser := NewMockPresser()
	d := NewDispatcher(presser, nil, logger)

	for _, g := range []gesture.Gesture{gesture.Jump, gesture.Roll, gesture.Left, gesture.Right} {
		if _, err := d.Dispatch(context.Background(), g); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", g, err)
		}
	}

	want := []Key{KeyUp, KeyDown, KeyLeft, KeyRight}
	got := presser.Keys()
	if len(got) != len(want) {
		t.Fatalf("pressed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("press %d = %q, want %q", i, got[i], want[i])
		}
	}
	if n := strings.Count(logs.String(), "gesture dispatched"); n != 4 {
		t.Errorf("logged %d dispatches, want 4", n)
	}
	if !strings.Contains(logs.String(), "gesture=jump key=up") {
		t.Errorf("log missing gesture and key: %s", logs.String())
	}
}

func TestDispatcher_Unbound(t *testing.T) {
	presser := NewMockPresser()
	d := NewDispatcher(presser, Bindings{gesture.Jump: KeyUp}, nil)

	for _, g := range []gesture.Gesture{gesture.None, gesture.Roll} {
		_, err := d.Dispatch(context.Background(), g)
		if !errors.Is(err, ErrUnboundGesture) {
			t.Errorf("Dispatch(%s) error = %v, want ErrUnboundGesture", g, err)
		}
	}
	if len(presser.Keys()) != 0 {
		t.Error("unbound gestures must not press")
	}
}

func TestDispatcher_PressError(t *testing.T) {
	presser := NewMockPresser()
	boom := errors.New("no display")
	presser.SetError(boom)
	d := NewDispatcher(presser, nil, nil)

	k, err := d.Dispatch(context.Background(), gesture.Left)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped press error", err)
	}
	if k != KeyLeft {
		t.Errorf("key = %q, want left even on failure", k)
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if !presser.Closed() {
		t.Error("Close should close the presser")
	}
}

func TestTapEvents(t *testing.T) {
	now := time.Unix(1700000000, 123456789)
	events := tapEvents(keyUp, now)

	if len(events) != 4 {
		t.Fatalf("len = %d, want 4", len(events))
	}
	want := []struct {
		typ   uint16
		code  uint16
		value int32
	}{
		{evKey, keyUp, 1},
		{evSyn, synReport, 0},
		{evKey, keyUp, 0},
		{evSyn, synReport, 0},
	}
	for i, w := range want {
		ev := events[i]
		if ev.Type != w.typ || ev.Code != w.code || ev.Value != w.value {
			t.Errorf("event %d = %+v, want %+v", i, ev, w)
		}
		if ev.Sec != 1700000000 || ev.Usec != 123456 {
			t.Errorf("event %d time = %d.%06d", i, ev.Sec, ev.Usec)
		}
	}

	raw := encodeEvents(events)
	size := binary.Size(inputEvent{})
	if size != 24 {
		t.Fatalf("input_event size = %d, want 24", size)
	}
	if len(raw) != 4*size {
		t.Fatalf("encoded %d bytes, want %d", len(raw), 4*size)
	}

	var first inputEvent
	if err := binary.Read(bytes.NewReader(raw[:size]), binary.LittleEndian, &first); err != nil {
		t.Fatal(err)
	}
	if first != events[0] {
		t.Errorf("decoded %+v, want %+v", first, events[0])
	}
}

func TestLinuxKeyCodes(t *testing.T) {
	for _, k := range Keys {
		if _, ok := linuxKeyCodes[k]; !ok {
			t.Errorf("no linux key code for %s", k)
		}
	}
}

func TestOpen(t *testing.T) {
	p, err := Open("log", Options{})
	if err != nil {
		t.Fatalf("Open(log) error = %v", err)
	}
	if err := p.Press(context.Background(), KeyUp); err != nil {
		t.Errorf("log Press() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}

	if _, err := Open("morse", Options{}); err == nil {
		t.Error("expected error for unknown backend")
	}

	if runtime.GOOS != "windows" {
		if _, err := Open("sendinput", Options{}); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Open(sendinput) error = %v, want ErrUnsupported", err)
		}
	}
}

// writeTapper installs a keypress plugin that copies its request to the
// returned file.
func writeTapper(t *testing.T) (root, out string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	root = t.TempDir()
	dir := filepath.Join(root, "tapper")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"tapper","version":"1.0.0","executable":"tapper.sh","actions":["keypress"]}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	out = filepath.Join(root, "pressed.txt")
	script := "#!/bin/sh\ncat > " + out + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "tapper.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return root, out
}

func TestOpen_Plugin(t *testing.T) {
	root, out := writeTapper(t)

	p, err := Open("plugin", Options{PluginDir: root, Plugin: "tapper", PluginTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Open(plugin) error = %v", err)
	}
	defer p.Close()

	if err := p.Press(context.Background(), KeyDown); err != nil {
		t.Fatalf("Press() error = %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), `"action":"keypress"`) || !strings.Contains(string(got), `"key":"down"`) {
		t.Errorf("plugin received %s", got)
	}

	if _, err := Open("plugin", Options{PluginDir: root, Plugin: "missing"}); err == nil {
		t.Error("expected error for missing plugin")
	}
}

func TestDispatcher_PluginReceivesGesture(t *testing.T) {
	root, out := writeTapper(t)

	p, err := Open("plugin", Options{PluginDir: root, Plugin: "tapper", PluginTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Open(plugin) error = %v", err)
	}
	d := NewDispatcher(p, nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	defer d.Close()

	if _, err := d.Dispatch(context.Background(), gesture.Right); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"gesture":"right"`, `"key":"right"`} {
		if !strings.Contains(string(got), want) {
			t.Errorf("plugin received %s, missing %s", got, want)
		}
	}
}

func TestPluginPresser_Refused(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	root := t.TempDir()
	dir := filepath.Join(root, "refuse")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"refuse","executable":"refuse.sh","actions":["keypress"]}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\ncat >/dev/null\necho '{\"success\":false,\"error\":\"no xdotool\"}'\n"
	if err := os.WriteFile(filepath.Join(dir, "refuse.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	p, err := Open("plugin", Options{PluginDir: root, Plugin: "refuse"})
	if err != nil {
		t.Fatalf("Open(plugin) error = %v", err)
	}
	err = p.Press(context.Background(), KeyUp)
	if err == nil || !strings.Contains(err.Error(), "no xdotool") {
		t.Errorf("Press() error = %v, want plugin error", err)
	}
}

func TestPluginPresser_RequiresKeypress(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "other")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"other","executable":"other","actions":["volume"]}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open("plugin", Options{PluginDir: root, Plugin: "other"}); err == nil {
		t.Error("expected error for plugin without keypress")
	}
}
