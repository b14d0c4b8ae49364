//go:build !windows

package action

import "context"

// SendInputPresser is only available on Windows.
type SendInputPresser struct{}

// NewSendInputPresser returns ErrUnsupported outside Windows.
func NewSendInputPresser() (*SendInputPresser, error) {
	return nil, ErrUnsupported
}

func (p *SendInputPresser) Press(context.Context, Key) error { return ErrUnsupported }

func (p *SendInputPresser) Close() error { return nil }
