package gesture

import "time"

// Thresholds is the parameter set governing every channel's sensitivity,
// window length and cooldown. It is a plain value; the classifier does not
// validate it.
type Thresholds struct {
	// Eyes
	EyeARThreshold      float64
	MinBlinkFrames      int // documents intent; blink timing is edge-based
	DoubleBlinkInterval time.Duration
	LongCloseFrames     int

	// Mouth
	MouthARThreshold   float64
	MouthConfirmFrames int

	// Eyebrows
	EyebrowRaiseThreshold float64
	EyebrowConfirmFrames  int

	// Head tilt, in degrees
	HeadTiltThreshold     float64
	HeadTiltDeadzone      float64
	HeadTiltConfirmFrames int

	// Cooldown is shared by every gesture kind.
	Cooldown time.Duration
}

// DefaultThresholds returns thresholds tuned for a 30 FPS webcam.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EyeARThreshold:        0.20,
		MinBlinkFrames:        2,
		DoubleBlinkInterval:   800 * time.Millisecond,
		LongCloseFrames:       30,
		MouthARThreshold:      0.30,
		MouthConfirmFrames:    5,
		EyebrowRaiseThreshold: 0.020,
		EyebrowConfirmFrames:  5,
		HeadTiltThreshold:     15.0,
		HeadTiltDeadzone:      7.0,
		HeadTiltConfirmFrames: 5,
		Cooldown:              500 * time.Millisecond,
	}
}
