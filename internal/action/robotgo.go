package action

import (
	"context"

	"github.com/go-vgo/robotgo"
)

// RobotgoPresser taps keys through robotgo, which injects into the focused
// window on macOS, Windows and X11.
type RobotgoPresser struct{}

// NewRobotgoPresser creates a RobotgoPresser.
func NewRobotgoPresser() *RobotgoPresser {
	return &RobotgoPresser{}
}

func (p *RobotgoPresser) Press(_ context.Context, k Key) error {
	// robotgo key names match ours for the arrow keys.
	return robotgo.KeyTap(string(k))
}

func (p *RobotgoPresser) Close() error { return nil }
