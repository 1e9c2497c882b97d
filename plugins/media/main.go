// Package main provides a media and volume control plugin.
// On macOS it drives AppleScript; on Linux it uses playerctl and pactl.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/facecomm/internal/plugin"
)

// command is one external invocation.
type command struct {
	name string
	args []string
}

// appleScript wraps a script for osascript.
func appleScript(script string) command {
	return command{name: "osascript", args: []string{"-e", script}}
}

// mediaKey presses a System Events key code.
func mediaKey(code int) command {
	return appleScript(fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code))
}

// darwinCommands maps action names to AppleScript invocations.
var darwinCommands = map[string]command{
	"play-pause":  mediaKey(100),
	"next":        mediaKey(101),
	"prev":        mediaKey(98),
	"volume-up":   appleScript(`set volume output volume ((output volume of (get volume settings)) + 10)`),
	"volume-down": appleScript(`set volume output volume ((output volume of (get volume settings)) - 10)`),
	"volume-mute": appleScript(`set volume output muted (not (output muted of (get volume settings)))`),
}

// linuxCommands maps action names to playerctl/pactl invocations.
var linuxCommands = map[string]command{
	"play-pause":  {name: "playerctl", args: []string{"play-pause"}},
	"next":        {name: "playerctl", args: []string{"next"}},
	"prev":        {name: "playerctl", args: []string{"previous"}},
	"volume-up":   {name: "pactl", args: []string{"set-sink-volume", "@DEFAULT_SINK@", "+10%"}},
	"volume-down": {name: "pactl", args: []string{"set-sink-volume", "@DEFAULT_SINK@", "-10%"}},
	"volume-mute": {name: "pactl", args: []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}},
}

func commandsFor(goos string) map[string]command {
	switch goos {
	case "darwin":
		return darwinCommands
	case "linux":
		return linuxCommands
	default:
		return nil
	}
}

// actions builds the dispatch table for goos.
func actions(goos string) map[string]plugin.ActionFunc {
	table := make(map[string]plugin.ActionFunc)
	for name, cmd := range commandsFor(goos) {
		table[name] = func(*plugin.Request) (any, error) {
			return nil, run(cmd)
		}
	}
	return table
}

func run(c command) error {
	output, err := exec.Command(c.name, c.args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func main() {
	if err := plugin.Serve(os.Stdin, os.Stdout, actions(runtime.GOOS)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
