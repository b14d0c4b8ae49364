//go:build !linux

package action

import "context"

// UinputPresser is only available on Linux.
type UinputPresser struct{}

// NewUinputPresser returns ErrUnsupported outside Linux.
func NewUinputPresser() (*UinputPresser, error) {
	return nil, ErrUnsupported
}

func (p *UinputPresser) Press(context.Context, Key) error { return ErrUnsupported }

func (p *UinputPresser) Close() error { return nil }
