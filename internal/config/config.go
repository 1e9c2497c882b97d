// Package config loads the YAML configuration files: thresholds.yaml,
// settings.yaml, and phrases.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/facecomm/internal/gesture"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// File names within a config directory.
const (
	ThresholdsFile = "thresholds.yaml"
	SettingsFile   = "settings.yaml"
	PhrasesFile    = "phrases.yaml"
)

// Warning is a non-fatal configuration note.
type Warning struct {
	Message string
}

func (w Warning) String() string { return w.Message }

// Config is everything loaded from one config directory.
type Config struct {
	Dir        string
	Settings   Settings
	Thresholds gesture.Thresholds
	Phrases    Phrases
	Warnings   []Warning
}

// ResolveDir returns dir, or $FACECOMM_CONFIG, or ./config.
func ResolveDir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv("FACECOMM_CONFIG"); env != "" {
		return env
	}
	return "config"
}

// Load reads all three files from dir. Missing files fall back to defaults
// with a warning.
func Load(dir string) (*Config, error) {
	dir = ResolveDir(dir)
	cfg := &Config{Dir: dir}

	settings, warns, err := LoadSettings(filepath.Join(dir, SettingsFile))
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings
	cfg.Warnings = append(cfg.Warnings, warns...)

	th, warns, err := LoadThresholds(filepath.Join(dir, ThresholdsFile))
	if err != nil {
		return nil, err
	}
	cfg.Thresholds = th
	cfg.Warnings = append(cfg.Warnings, warns...)

	phrases, warns, err := LoadPhrases(filepath.Join(dir, PhrasesFile))
	if err != nil {
		return nil, err
	}
	cfg.Phrases = phrases
	cfg.Warnings = append(cfg.Warnings, warns...)

	return cfg, nil
}

// decodeFile decodes path into out. ok is false when the file does not exist.
func decodeFile(path string, out any) (ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(out); err != nil {
		// An empty file decodes to EOF; treat it as all defaults.
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func missing(path string) Warning {
	return Warning{Message: fmt.Sprintf("%s not found; using defaults", path)}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
