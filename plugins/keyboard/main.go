// Command keyboard is a handrunner plugin that taps arrow keys through the
// platform's scripting tools: AppleScript on macOS, xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

type request struct {
	Action  string `json:"action"`
	Gesture string `json:"gesture"`
	Key     string `json:"key"`
}

type response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// appleKeyCodes are System Events key codes for the arrow keys.
var appleKeyCodes = map[string]int{
	"left":  123,
	"right": 124,
	"down":  125,
	"up":    126,
}

var xdotoolKeys = map[string]string{
	"left":  "Left",
	"right": "Right",
	"down":  "Down",
	"up":    "Up",
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	if req.Action != "keypress" {
		writeResponse(response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	name, args, err := pressCommand(runtime.GOOS, req.Key)
	if err != nil {
		writeResponse(response{Error: err.Error()})
		return
	}
	if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		writeResponse(response{Error: fmt.Sprintf("%s: %v: %s", name, err, out)})
		return
	}

	data, _ := json.Marshal(map[string]string{"key": req.Key, "gesture": req.Gesture})
	writeResponse(response{Success: true, Data: data})
}

// pressCommand returns the command line that taps key on goos.
func pressCommand(goos, key string) (string, []string, error) {
	switch goos {
	case "darwin":
		code, ok := appleKeyCodes[key]
		if !ok {
			return "", nil, fmt.Errorf("unsupported key %q", key)
		}
		script := fmt.Sprintf(`tell application "System Events" to key code %d`, code)
		return "osascript", []string{"-e", script}, nil
	case "linux":
		k, ok := xdotoolKeys[key]
		if !ok {
			return "", nil, fmt.Errorf("unsupported key %q", key)
		}
		return "xdotool", []string{"key", k}, nil
	default:
		return "", nil, fmt.Errorf("keyboard plugin does not support %s", goos)
	}
}

func writeResponse(resp response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
