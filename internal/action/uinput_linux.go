//go:build linux

package action

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const uinputPath = "/dev/uinput"

// linux/uinput.h ioctls
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
)

const busVirtual = 0x06

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	Name         [80]byte
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	FFEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// UinputPresser creates a virtual keyboard through /dev/uinput. It works
// under Wayland and on consoles, and needs write access to the device.
type UinputPresser struct {
	mu sync.Mutex
	fd int
}

// NewUinputPresser creates the virtual keyboard device.
func NewUinputPresser() (*UinputPresser, error) {
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}

	if err := setupKeyboard(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// Give udev a moment to announce the device before the first tap.
	time.Sleep(100 * time.Millisecond)
	return &UinputPresser{fd: fd}, nil
}

func setupKeyboard(fd int) error {
	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("uinput set EV_KEY: %w", err)
	}
	for _, code := range linuxKeyCodes {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("uinput set key %d: %w", code, err)
		}
	}

	dev := uinputUserDev{Bustype: busVirtual, Vendor: 0x1, Product: 0x1, Version: 1}
	copy(dev.Name[:], "handrunner virtual keyboard")

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &dev); err != nil {
		return fmt.Errorf("encode uinput device: %w", err)
	}
	if _, err := unix.Write(fd, buf.Bytes()); err != nil {
		return fmt.Errorf("write uinput device: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("uinput create: %w", err)
	}
	return nil
}

func (p *UinputPresser) Press(_ context.Context, k Key) error {
	code, ok := linuxKeyCodes[k]
	if !ok {
		return fmt.Errorf("uinput: unknown key %q", k)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fd < 0 {
		return fmt.Errorf("uinput: device closed")
	}
	if _, err := unix.Write(p.fd, encodeEvents(tapEvents(code, time.Now()))); err != nil {
		return fmt.Errorf("uinput write: %w", err)
	}
	return nil
}

func (p *UinputPresser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fd < 0 {
		return nil
	}
	_ = unix.IoctlSetInt(p.fd, uiDevDestroy, 0)
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
