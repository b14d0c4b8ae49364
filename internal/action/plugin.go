package action

import (
	"context"
	"fmt"

	"github.com/ayusman/handrunner/internal/gesture"
	"github.com/ayusman/handrunner/internal/plugin"
)

// PluginPresser taps keys by running a plugin's keypress action.
type PluginPresser struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
}

// NewPluginPresser looks up name in mgr. The plugin must list the keypress
// action in its manifest.
func NewPluginPresser(mgr *plugin.Manager, name string, executor *plugin.Executor) (*PluginPresser, error) {
	p, err := mgr.Get(name)
	if err != nil {
		return nil, fmt.Errorf("key plugin %q: %w", name, err)
	}
	if !p.Manifest.Supports(plugin.ActionKeyPress) {
		return nil, fmt.Errorf("key plugin %q does not support %s", name, plugin.ActionKeyPress)
	}
	return &PluginPresser{plugin: p, executor: executor}, nil
}

func (p *PluginPresser) Press(ctx context.Context, k Key) error {
	return p.PressGesture(ctx, gesture.None, k)
}

// PressGesture taps k and tells the plugin which gesture it stands for.
func (p *PluginPresser) PressGesture(ctx context.Context, g gesture.Gesture, k Key) error {
	resp, err := p.executor.Execute(ctx, p.plugin, &plugin.Request{
		Action:  plugin.ActionKeyPress,
		Gesture: string(g),
		Key:     string(k),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", p.plugin.Manifest.Name, resp.Error)
	}
	return nil
}

func (p *PluginPresser) Close() error { return nil }
