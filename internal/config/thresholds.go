package config

import (
	"math"
	"time"

	"github.com/ayusman/facecomm/internal/gesture"
)

// Thresholds is the file and wire form of gesture.Thresholds. Durations are
// expressed in seconds.
type Thresholds struct {
	Eye struct {
		AspectRatioThreshold float64 `yaml:"aspect_ratio_threshold" json:"aspect_ratio_threshold"`
		MinBlinkFrames       int     `yaml:"min_blink_frames" json:"min_blink_frames"`
		DoubleBlinkInterval  float64 `yaml:"double_blink_interval" json:"double_blink_interval"`
		LongCloseFrames      int     `yaml:"long_close_frames" json:"long_close_frames"`
	} `yaml:"eye" json:"eye"`
	Mouth struct {
		AspectRatioThreshold float64 `yaml:"aspect_ratio_threshold" json:"aspect_ratio_threshold"`
		ConfirmFrames        int     `yaml:"confirm_frames" json:"confirm_frames"`
	} `yaml:"mouth" json:"mouth"`
	Eyebrow struct {
		RaiseThreshold float64 `yaml:"raise_threshold" json:"raise_threshold"`
		ConfirmFrames  int     `yaml:"confirm_frames" json:"confirm_frames"`
	} `yaml:"eyebrow" json:"eyebrow"`
	HeadTilt struct {
		AngleThreshold float64 `yaml:"angle_threshold" json:"angle_threshold"`
		Deadzone       float64 `yaml:"deadzone" json:"deadzone"`
		ConfirmFrames  int     `yaml:"confirm_frames" json:"confirm_frames"`
	} `yaml:"head_tilt" json:"head_tilt"`
	GestureSettings struct {
		Cooldown float64 `yaml:"cooldown" json:"cooldown"`
	} `yaml:"gesture" json:"gesture"`
}

// FromGesture converts classifier thresholds to their file form.
func FromGesture(th gesture.Thresholds) Thresholds {
	var t Thresholds
	t.Eye.AspectRatioThreshold = th.EyeARThreshold
	t.Eye.MinBlinkFrames = th.MinBlinkFrames
	t.Eye.DoubleBlinkInterval = th.DoubleBlinkInterval.Seconds()
	t.Eye.LongCloseFrames = th.LongCloseFrames
	t.Mouth.AspectRatioThreshold = th.MouthARThreshold
	t.Mouth.ConfirmFrames = th.MouthConfirmFrames
	t.Eyebrow.RaiseThreshold = th.EyebrowRaiseThreshold
	t.Eyebrow.ConfirmFrames = th.EyebrowConfirmFrames
	t.HeadTilt.AngleThreshold = th.HeadTiltThreshold
	t.HeadTilt.Deadzone = th.HeadTiltDeadzone
	t.HeadTilt.ConfirmFrames = th.HeadTiltConfirmFrames
	t.GestureSettings.Cooldown = th.Cooldown.Seconds()
	return t
}

// Gesture converts the file form to classifier thresholds.
func (t Thresholds) Gesture() gesture.Thresholds {
	return gesture.Thresholds{
		EyeARThreshold:        t.Eye.AspectRatioThreshold,
		MinBlinkFrames:        t.Eye.MinBlinkFrames,
		DoubleBlinkInterval:   seconds(t.Eye.DoubleBlinkInterval),
		LongCloseFrames:       t.Eye.LongCloseFrames,
		MouthARThreshold:      t.Mouth.AspectRatioThreshold,
		MouthConfirmFrames:    t.Mouth.ConfirmFrames,
		EyebrowRaiseThreshold: t.Eyebrow.RaiseThreshold,
		EyebrowConfirmFrames:  t.Eyebrow.ConfirmFrames,
		HeadTiltThreshold:     t.HeadTilt.AngleThreshold,
		HeadTiltDeadzone:      t.HeadTilt.Deadzone,
		HeadTiltConfirmFrames: t.HeadTilt.ConfirmFrames,
		Cooldown:              seconds(t.GestureSettings.Cooldown),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// LoadThresholds reads a thresholds file. Keys absent from the file keep their
// default values.
func LoadThresholds(path string) (gesture.Thresholds, []Warning, error) {
	t := FromGesture(gesture.DefaultThresholds())
	ok, err := decodeFile(path, &t)
	if err != nil {
		return gesture.Thresholds{}, nil, err
	}

	var warnings []Warning
	if !ok {
		warnings = append(warnings, missing(path))
	}

	th := t.Gesture()
	more, err := ValidateThresholds(th)
	if err != nil {
		return gesture.Thresholds{}, nil, err
	}
	return th, append(warnings, more...), nil
}

// ValidateThresholds rejects values the classifier cannot work with.
func ValidateThresholds(th gesture.Thresholds) ([]Warning, error) {
	var warnings []Warning

	frames := []struct {
		name string
		v    int
	}{
		{"eye.long_close_frames", th.LongCloseFrames},
		{"mouth.confirm_frames", th.MouthConfirmFrames},
		{"eyebrow.confirm_frames", th.EyebrowConfirmFrames},
		{"head_tilt.confirm_frames", th.HeadTiltConfirmFrames},
	}
	for _, f := range frames {
		if f.v <= 0 {
			return nil, invalid("%s must be > 0", f.name)
		}
	}
	if th.MinBlinkFrames < 0 {
		return nil, invalid("eye.min_blink_frames must be >= 0")
	}
	if th.EyeARThreshold <= 0 {
		return nil, invalid("eye.aspect_ratio_threshold must be > 0")
	}
	if th.MouthARThreshold <= 0 {
		return nil, invalid("mouth.aspect_ratio_threshold must be > 0")
	}
	if th.EyebrowRaiseThreshold < 0 {
		return nil, invalid("eyebrow.raise_threshold must be >= 0")
	}
	if th.DoubleBlinkInterval < 0 {
		return nil, invalid("eye.double_blink_interval must be >= 0")
	}
	if th.Cooldown < 0 {
		return nil, invalid("gesture.cooldown must be >= 0")
	}
	if th.HeadTiltThreshold < 0 || th.HeadTiltThreshold >= 180 {
		return nil, invalid("head_tilt.angle_threshold must be in [0, 180)")
	}
	if th.HeadTiltDeadzone < 0 || th.HeadTiltDeadzone >= 180 {
		return nil, invalid("head_tilt.deadzone must be in [0, 180)")
	}

	if th.HeadTiltDeadzone >= th.HeadTiltThreshold {
		warnings = append(warnings, Warning{
			Message: "head_tilt.deadzone >= head_tilt.angle_threshold: eyebrows stay eligible only while centered",
		})
	}
	if th.LongCloseFrames < 2 {
		warnings = append(warnings, Warning{
			Message: "eye.long_close_frames < 2 disables blink edge detection",
		})
	}
	return warnings, nil
}
