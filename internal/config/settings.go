package config

import (
	"strings"
	"time"

	"github.com/ayusman/facecomm/internal/logging"
)

// Settings is the runtime configuration in settings.yaml.
type Settings struct {
	Camera struct {
		DeviceID int  `yaml:"device_id"`
		Width    int  `yaml:"width"`
		Height   int  `yaml:"height"`
		FPS      int  `yaml:"fps"`
		Mirror   bool `yaml:"mirror"`
	} `yaml:"camera"`
	Server struct {
		Addr      string `yaml:"addr"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`
	Data struct {
		Dir    string `yaml:"dir"`
		Record bool   `yaml:"record"`
	} `yaml:"data"`
	Plugins struct {
		Dir     string        `yaml:"dir"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"plugins"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// DefaultSettings returns the settings used when settings.yaml is absent.
func DefaultSettings() Settings {
	var s Settings
	s.Camera.DeviceID = 0
	s.Camera.Width = 640
	s.Camera.Height = 480
	s.Camera.FPS = 30
	s.Camera.Mirror = true
	s.Server.Addr = "127.0.0.1:8765"
	s.Server.StaticDir = "static"
	s.Data.Dir = "data"
	s.Plugins.Dir = "plugins"
	s.Plugins.Timeout = 5 * time.Second
	s.Log.Level = "info"
	s.Log.Format = "text"
	return s
}

// LoadSettings reads settings.yaml over the defaults.
func LoadSettings(path string) (Settings, []Warning, error) {
	s := DefaultSettings()
	ok, err := decodeFile(path, &s)
	if err != nil {
		return Settings{}, nil, err
	}
	var warnings []Warning
	if !ok {
		warnings = append(warnings, missing(path))
	}
	if err := s.Validate(); err != nil {
		return Settings{}, nil, err
	}
	return s, warnings, nil
}

// Validate checks the settings for values that cannot work.
func (s Settings) Validate() error {
	if s.Camera.DeviceID < 0 {
		return invalid("camera.device_id must be >= 0")
	}
	if s.Camera.Width <= 0 || s.Camera.Height <= 0 {
		return invalid("camera.width and camera.height must be > 0")
	}
	if s.Camera.FPS <= 0 || s.Camera.FPS > 120 {
		return invalid("camera.fps must be in (0, 120]")
	}
	if strings.TrimSpace(s.Server.Addr) == "" {
		return invalid("server.addr must not be empty")
	}
	if strings.TrimSpace(s.Data.Dir) == "" {
		return invalid("data.dir must not be empty")
	}
	if s.Plugins.Timeout <= 0 {
		return invalid("plugins.timeout must be > 0")
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json":
	default:
		return invalid("log.format must be text or json")
	}
	return nil
}

// LogOptions converts the log section to logging options.
func (s Settings) LogOptions() logging.Options {
	return logging.Options{
		Level:  s.Log.Level,
		Format: s.Log.Format,
		File:   s.Log.File,
	}
}
