package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ayusman/facecomm/internal/gesture"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, gesture.DefaultThresholds(), cfg.Thresholds)
	require.Equal(t, DefaultSettings(), cfg.Settings)
	require.Empty(t, cfg.Phrases.All())
	require.Len(t, cfg.Warnings, 3)
}

func TestLoadThresholds_PartialFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ThresholdsFile, `
eye:
  aspect_ratio_threshold: 0.18
  double_blink_interval: 1.2
mouth:
  confirm_frames: 8
gesture:
  cooldown: 0.75
`)

	th, warnings, err := LoadThresholds(filepath.Join(dir, ThresholdsFile))
	require.NoError(t, err)
	require.Empty(t, warnings)

	want := gesture.DefaultThresholds()
	want.EyeARThreshold = 0.18
	want.DoubleBlinkInterval = 1200 * time.Millisecond
	want.MouthConfirmFrames = 8
	want.Cooldown = 750 * time.Millisecond
	require.Equal(t, want, th)
}

func TestLoadThresholds_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ThresholdsFile, "head_tilt:\n  confirm_frames: 0\n")

	_, _, err := LoadThresholds(filepath.Join(dir, ThresholdsFile))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalid))
	require.Contains(t, err.Error(), "head_tilt.confirm_frames")
}

func TestLoadThresholds_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ThresholdsFile, "eye: [1, 2\n")

	_, _, err := LoadThresholds(filepath.Join(dir, ThresholdsFile))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse")
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*gesture.Thresholds)
		wantErr string
	}{
		{name: "long close frames", mutate: func(th *gesture.Thresholds) { th.LongCloseFrames = 0 }, wantErr: "eye.long_close_frames"},
		{name: "negative cooldown", mutate: func(th *gesture.Thresholds) { th.Cooldown = -time.Second }, wantErr: "gesture.cooldown"},
		{name: "zero eye threshold", mutate: func(th *gesture.Thresholds) { th.EyeARThreshold = 0 }, wantErr: "eye.aspect_ratio_threshold"},
		{name: "deadzone out of range", mutate: func(th *gesture.Thresholds) { th.HeadTiltDeadzone = 180 }, wantErr: "head_tilt.deadzone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := gesture.DefaultThresholds()
			tt.mutate(&th)
			_, err := ValidateThresholds(th)
			require.ErrorIs(t, err, ErrInvalid)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}

	th := gesture.DefaultThresholds()
	th.HeadTiltDeadzone = 20
	warnings, err := ValidateThresholds(th)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}

func TestThresholds_RoundTrip(t *testing.T) {
	th := gesture.DefaultThresholds()
	require.Equal(t, th, FromGesture(th).Gesture())
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SettingsFile, `
camera:
  device_id: 1
  fps: 15
server:
  addr: ":9000"
plugins:
  timeout: 2s
log:
  level: debug
  format: json
`)

	s, warnings, err := LoadSettings(filepath.Join(dir, SettingsFile))
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 1, s.Camera.DeviceID)
	require.Equal(t, 15, s.Camera.FPS)
	require.Equal(t, 640, s.Camera.Width)
	require.Equal(t, ":9000", s.Server.Addr)
	require.Equal(t, 2*time.Second, s.Plugins.Timeout)
	require.Equal(t, "json", s.LogOptions().Format)
}

func TestLoadSettings_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SettingsFile, "log:\n  level: chatty\n")

	_, _, err := LoadSettings(filepath.Join(dir, SettingsFile))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadPhrases_DropsEmptyCustom(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PhrasesFile, `
categories:
  - name: Basic
    icon: "*"
    phrases:
      - {id: affirm, text: "Yes", short: "Y"}
      - {id: thanks, text: "Thank you", short: "TY"}
custom:
  - {id: c1, text: "Water please", short: "Water"}
  - {id: c2, text: "", short: ""}
  - {id: c3, text: "   ", short: ""}
`)

	p, _, err := LoadPhrases(filepath.Join(dir, PhrasesFile))
	require.NoError(t, err)
	require.Len(t, p.Custom, 1)
	require.Len(t, p.All(), 3)

	ph, ok := p.Find("c1")
	require.True(t, ok)
	require.Equal(t, "Water please", ph.Text)

	_, ok = p.Find("c2")
	require.False(t, ok)
}

func TestResolveDir(t *testing.T) {
	t.Setenv("FACECOMM_CONFIG", "/etc/facecomm")
	require.Equal(t, "/x", ResolveDir("/x"))
	require.Equal(t, "/etc/facecomm", ResolveDir(""))

	t.Setenv("FACECOMM_CONFIG", "")
	require.Equal(t, "config", ResolveDir(""))
}
