package gesture

import "math"

// TiltAngle is a head tilt in degrees, in (-180, 180].
//
// Upright sits at the ±180° seam. Tilting left moves the value from -180 toward
// 0; tilting right moves it from 180 toward 0. Band tests therefore work on the
// magnitude's distance from 180, never on the distance from 0.
type TiltAngle float64

// Band classifies a tilt angle relative to the deadzone.
type Band int

const (
	// BandIndeterminate is outside the centered band and in neither tilt band.
	BandIndeterminate Band = iota
	// BandCentered is within the deadzone of upright.
	BandCentered
	// BandLeft is a left tilt beyond the deadzone.
	BandLeft
	// BandRight is a right tilt beyond the deadzone.
	BandRight
)

// String returns a short band name.
func (b Band) String() string {
	switch b {
	case BandCentered:
		return "center"
	case BandLeft:
		return "left"
	case BandRight:
		return "right"
	default:
		return "neither"
	}
}

// Degrees returns the raw angle.
func (a TiltAngle) Degrees() float64 {
	return float64(a)
}

// Deviation is how far the head is from upright, in degrees [0, 180).
func (a TiltAngle) Deviation() float64 {
	return 180 - math.Abs(float64(a))
}

// Centered reports |a| > 180 - deadzone.
func (a TiltAngle) Centered(deadzone float64) bool {
	return math.Abs(float64(a)) > 180-deadzone
}

// EyebrowEligible reports whether the head is upright enough for eyebrow
// detection: |a| > 180 - threshold.
func (a TiltAngle) EyebrowEligible(threshold float64) bool {
	return math.Abs(float64(a)) > 180-threshold
}

// Band returns the tilt band for the given deadzone. The boundaries themselves
// (±(180-deadzone) and 0) are indeterminate.
func (a TiltAngle) Band(deadzone float64) Band {
	if a.Centered(deadzone) {
		return BandCentered
	}
	edge := 180 - deadzone
	v := float64(a)
	switch {
	case v < 0 && v > -edge:
		return BandLeft
	case v > 0 && v < edge:
		return BandRight
	default:
		return BandIndeterminate
	}
}
