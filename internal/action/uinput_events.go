package action

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Linux input-event-codes.h
const (
	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0

	keyUp    = 103
	keyLeft  = 105
	keyRight = 106
	keyDown  = 108
)

var linuxKeyCodes = map[Key]uint16{
	KeyUp:    keyUp,
	KeyLeft:  keyLeft,
	KeyRight: keyRight,
	KeyDown:  keyDown,
}

// inputEvent mirrors struct input_event on 64-bit Linux.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// tapEvents returns press, sync, release, sync for code.
func tapEvents(code uint16, now time.Time) []inputEvent {
	sec := now.Unix()
	usec := int64(now.Nanosecond() / 1000)
	ev := func(typ, code uint16, value int32) inputEvent {
		return inputEvent{Sec: sec, Usec: usec, Type: typ, Code: code, Value: value}
	}
	return []inputEvent{
		ev(evKey, code, 1),
		ev(evSyn, synReport, 0),
		ev(evKey, code, 0),
		ev(evSyn, synReport, 0),
	}
}

// encodeEvents serializes events in native little-endian layout.
func encodeEvents(events []inputEvent) []byte {
	var buf bytes.Buffer
	for _, ev := range events {
		// bytes.Buffer writes cannot fail
		_ = binary.Write(&buf, binary.LittleEndian, ev)
	}
	return buf.Bytes()
}
