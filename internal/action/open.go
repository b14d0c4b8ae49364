package action

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/handrunner/internal/plugin"
)

// Options configures Open.
type Options struct {
	PluginDir     string
	Plugin        string
	PluginTimeout time.Duration
	Logger        *slog.Logger
}

// Open creates the Presser for a backend name: robotgo, uinput, sendinput,
// plugin or log.
func Open(backend string, opts Options) (Presser, error) {
	switch backend {
	case "robotgo":
		return NewRobotgoPresser(), nil
	case "uinput":
		p, err := NewUinputPresser()
		if err != nil {
			return nil, err
		}
		return p, nil
	case "sendinput":
		p, err := NewSendInputPresser()
		if err != nil {
			return nil, err
		}
		return p, nil
	case "plugin":
		mgr := plugin.NewManager(opts.PluginDir, opts.Logger)
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins in %s: %w", opts.PluginDir, err)
		}
		p, err := NewPluginPresser(mgr, opts.Plugin, plugin.NewExecutor(opts.PluginTimeout))
		if err != nil {
			return nil, err
		}
		return p, nil
	case "log":
		return NewLogPresser(opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown key backend %q", backend)
	}
}
