package gesture

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/facecomm/internal/detector"
)

// Features is the per-frame scalar summary of a face that the classifier consumes.
type Features struct {
	LeftEAR         float64   `json:"left_eye_ar"`
	RightEAR        float64   `json:"right_eye_ar"`
	MouthAR         float64   `json:"mouth_ar"`
	EyebrowPosition float64   `json:"eyebrow_position"`
	HeadTilt        TiltAngle `json:"head_tilt_angle"`
}

// AverageEAR returns the mean of both eye aspect ratios.
func (f *Features) AverageEAR() float64 {
	return (f.LeftEAR + f.RightEAR) / 2
}

// Extract computes the feature sample for a face. It returns nil when no face is present.
func Extract(lm *detector.FaceLandmarks) *Features {
	if lm == nil {
		return nil
	}

	return &Features{
		RightEAR: EyeAspectRatio(
			lm.At(detector.RightEyeTop), lm.At(detector.RightEyeBottom),
			lm.At(detector.RightEyeLeft), lm.At(detector.RightEyeRight),
		),
		LeftEAR: EyeAspectRatio(
			lm.At(detector.LeftEyeTop), lm.At(detector.LeftEyeBottom),
			lm.At(detector.LeftEyeLeft), lm.At(detector.LeftEyeRight),
		),
		MouthAR:         MouthAspectRatio(lm),
		EyebrowPosition: EyebrowPosition(lm),
		HeadTilt:        HeadTiltAngle(lm),
	}
}

// EyeAspectRatio is the vertical lid distance over the horizontal corner distance.
// It returns 0 when the corners coincide.
func EyeAspectRatio(top, bottom, left, right detector.Point) float64 {
	vertical := distance(top, bottom)
	horizontal := distance(left, right)
	if horizontal > 0 {
		return vertical / horizontal
	}
	return 0
}

// MouthAspectRatio applies the aspect ratio to the inner lip and mouth corner points.
func MouthAspectRatio(lm *detector.FaceLandmarks) float64 {
	return EyeAspectRatio(
		lm.At(detector.MouthTop), lm.At(detector.MouthBottom),
		lm.At(detector.MouthLeft), lm.At(detector.MouthRight),
	)
}

// EyebrowPosition is the forehead Y minus the mean brow Y. Image Y grows
// downward, so the value increases as the brows rise.
func EyebrowPosition(lm *detector.FaceLandmarks) float64 {
	brows := (lm.At(detector.RightEyebrow).Y + lm.At(detector.LeftEyebrow).Y) / 2
	return lm.At(detector.ForeheadCenter).Y - brows
}

// HeadTiltAngle is the direction of the chin-to-nose vector measured with
// atan2(dx, dy). An upright head points the vector straight up the image, which
// lands near ±180°, not 0°.
func HeadTiltAngle(lm *detector.FaceLandmarks) TiltAngle {
	nose := lm.At(detector.NoseTip)
	chin := lm.At(detector.Chin)
	rad := math.Atan2(nose.X-chin.X, nose.Y-chin.Y)
	return TiltAngle(rad * 180 / math.Pi)
}

func distance(a, b detector.Point) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}
