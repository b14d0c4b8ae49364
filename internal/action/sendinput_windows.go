//go:build windows

package action

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/lxn/win"
)

var windowsKeyCodes = map[Key]uint16{
	KeyLeft:  win.VK_LEFT,
	KeyRight: win.VK_RIGHT,
	KeyUp:    win.VK_UP,
	KeyDown:  win.VK_DOWN,
}

// keyboardInput is an INPUT with the keyboard member of the union, padded
// to the size of the largest member.
type keyboardInput struct {
	typ uint32
	ki  win.KEYBDINPUT
	_   [8]byte
}

// SendInputPresser taps keys with user32 SendInput.
type SendInputPresser struct{}

// NewSendInputPresser creates a SendInputPresser.
func NewSendInputPresser() (*SendInputPresser, error) {
	return &SendInputPresser{}, nil
}

func (p *SendInputPresser) Press(_ context.Context, k Key) error {
	vk, ok := windowsKeyCodes[k]
	if !ok {
		return fmt.Errorf("sendinput: unknown key %q", k)
	}

	// Arrow keys live on the extended block.
	inputs := []keyboardInput{
		{typ: win.INPUT_KEYBOARD, ki: win.KEYBDINPUT{WVk: vk, DwFlags: win.KEYEVENTF_EXTENDEDKEY}},
		{typ: win.INPUT_KEYBOARD, ki: win.KEYBDINPUT{WVk: vk, DwFlags: win.KEYEVENTF_EXTENDEDKEY | win.KEYEVENTF_KEYUP}},
	}
	size := int32(unsafe.Sizeof(keyboardInput{}))
	if n := win.SendInput(uint32(len(inputs)), unsafe.Pointer(&inputs[0]), size); n != uint32(len(inputs)) {
		return fmt.Errorf("sendinput: %d of %d events injected", n, len(inputs))
	}
	return nil
}

func (p *SendInputPresser) Close() error { return nil }
