// Package detector provides face landmark detection interfaces and types for gesture recognition.
package detector

// Face landmark indices following the MediaPipe Face Mesh topology.
// See: https://github.com/google/mediapipe/blob/master/mediapipe/modules/face_geometry/data/canonical_face_model_uv_visualization.png
//
// Only these fourteen points are read by the gesture classifier.
const (
	RightEyeTop    = 159
	RightEyeBottom = 145
	RightEyeLeft   = 33
	RightEyeRight  = 133

	LeftEyeTop    = 386
	LeftEyeBottom = 374
	LeftEyeLeft   = 362
	LeftEyeRight  = 263

	MouthTop    = 13
	MouthBottom = 14
	MouthLeft   = 78
	MouthRight  = 308

	RightEyebrow   = 70
	LeftEyebrow    = 300
	ForeheadCenter = 10

	NoseTip = 4
	Chin    = 152

	// NumLandmarks is the size of the base face mesh.
	NumLandmarks = 468
	// NumRefinedLandmarks includes the iris points added by refine_landmarks.
	NumRefinedLandmarks = 478
)

// Point is a normalized image-space point; X and Y are in [0,1] with Y growing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceLandmarks is the landmark set for a single detected face.
type FaceLandmarks struct {
	Points []Point `json:"points"`
	Score  float64 `json:"score"`
}

// Complete reports whether every index the classifier reads is present.
func (f *FaceLandmarks) Complete() bool {
	return f != nil && len(f.Points) >= NumLandmarks
}

// At returns the point at index i.
func (f *FaceLandmarks) At(i int) Point {
	return f.Points[i]
}

// Mirror flips the landmarks horizontally, matching a selfie-view camera frame.
func (f *FaceLandmarks) Mirror() *FaceLandmarks {
	if f == nil {
		return nil
	}

	mirrored := &FaceLandmarks{
		Points: make([]Point, len(f.Points)),
		Score:  f.Score,
	}
	for i, p := range f.Points {
		mirrored.Points[i] = Point{X: 1 - p.X, Y: p.Y}
	}
	return mirrored
}
