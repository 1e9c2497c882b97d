// Command speech is an action plugin that speaks a phrase aloud when a gesture
// fires. It uses `say` on macOS and `espeak` (or `spd-say`) elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/ayusman/facecomm/internal/plugin"
)

// sayConfig is the binding config for the "say" action. Params may override Text.
type sayConfig struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	Rate  int    `json:"rate,omitempty"`
}

func main() {
	err := plugin.Serve(os.Stdin, os.Stdout, map[string]plugin.ActionFunc{
		"say":    say,
		"voices": voices,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func say(req *plugin.Request) (any, error) {
	cfg, err := parseConfig(req)
	if err != nil {
		return nil, err
	}

	name, args, err := speakCommand(runtime.GOOS, cfg)
	if err != nil {
		return nil, err
	}
	if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return map[string]string{"spoken": cfg.Text}, nil
}

func voices(*plugin.Request) (any, error) {
	if runtime.GOOS != "darwin" {
		return nil, errors.New("voice listing is only supported on macOS")
	}
	out, err := exec.Command("say", "-v", "?").Output()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			names = append(names, fields[0])
		}
	}
	return names, nil
}

func parseConfig(req *plugin.Request) (sayConfig, error) {
	var cfg sayConfig
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config: %w", err)
		}
	}
	if len(req.Params) > 0 {
		var override sayConfig
		if err := json.Unmarshal(req.Params, &override); err != nil {
			return cfg, fmt.Errorf("invalid params: %w", err)
		}
		if override.Text != "" {
			cfg.Text = override.Text
		}
	}
	cfg.Text = strings.TrimSpace(cfg.Text)
	if cfg.Text == "" {
		return cfg, errors.New("nothing to say: text is empty")
	}
	return cfg, nil
}

// speakCommand picks the text-to-speech command for goos.
func speakCommand(goos string, cfg sayConfig) (string, []string, error) {
	switch goos {
	case "darwin":
		args := []string{}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(cfg.Rate))
		}
		return "say", append(args, cfg.Text), nil
	case "linux", "freebsd":
		for _, name := range []string{"espeak", "espeak-ng", "spd-say"} {
			if _, err := exec.LookPath(name); err != nil {
				continue
			}
			var args []string
			if cfg.Voice != "" && name != "spd-say" {
				args = append(args, "-v", cfg.Voice)
			}
			if cfg.Rate > 0 && name != "spd-say" {
				args = append(args, "-s", strconv.Itoa(cfg.Rate))
			}
			return name, append(args, cfg.Text), nil
		}
		return "", nil, errors.New("no speech synthesizer found (install espeak)")
	default:
		return "", nil, fmt.Errorf("speech is not supported on %s", goos)
	}
}
