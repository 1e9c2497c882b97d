package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	face     *FaceLandmarks
	sequence []*FaceLandmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by every Detect call. Nil means no face.
func (m *MockDetector) SetFace(face *FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = face
	m.sequence = nil
}

// SetSequence scripts one face per Detect call. After the script runs out the
// last entry keeps being returned.
func (m *MockDetector) SetSequence(faces []*FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured face or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		face := m.sequence[0]
		if len(m.sequence) > 1 {
			m.sequence = m.sequence[1:]
		}
		return face, nil
	}
	return m.face, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// faceHeight is the nose-tip to chin distance used by the preset faces.
const faceHeight = 0.28

// NeutralFaceLandmarks returns an upright face with open eyes, closed mouth and resting brows.
//
// Resulting features: EAR 0.30 per eye, MAR 0.125, eyebrow position -0.13, head tilt 180°.
func NeutralFaceLandmarks() *FaceLandmarks {
	f := &FaceLandmarks{
		Points: make([]Point, NumRefinedLandmarks),
		Score:  0.95,
	}
	for i := range f.Points {
		f.Points[i] = Point{X: 0.5, Y: 0.5}
	}

	// Right eye (image left after mirroring), 0.10 wide.
	f.Points[RightEyeLeft] = Point{X: 0.35, Y: 0.40}
	f.Points[RightEyeRight] = Point{X: 0.45, Y: 0.40}
	f.Points[LeftEyeLeft] = Point{X: 0.55, Y: 0.40}
	f.Points[LeftEyeRight] = Point{X: 0.65, Y: 0.40}
	setEyeOpening(f, 0.03)

	// Mouth, 0.16 wide.
	f.Points[MouthLeft] = Point{X: 0.42, Y: 0.65}
	f.Points[MouthRight] = Point{X: 0.58, Y: 0.65}
	setMouthOpening(f, 0.02)

	f.Points[ForeheadCenter] = Point{X: 0.5, Y: 0.20}
	setEyebrowHeight(f, 0.33)

	setHeadTilt(f, 180)

	return f
}

// EyesClosedLandmarks returns a neutral face with both eyes closed (EAR 0.10).
func EyesClosedLandmarks() *FaceLandmarks {
	f := NeutralFaceLandmarks()
	setEyeOpening(f, 0.01)
	return f
}

// MouthOpenLandmarks returns a neutral face with the mouth open (MAR 0.50).
func MouthOpenLandmarks() *FaceLandmarks {
	f := NeutralFaceLandmarks()
	setMouthOpening(f, 0.08)
	return f
}

// EyebrowsRaisedLandmarks returns a neutral face with brows 0.03 above rest.
func EyebrowsRaisedLandmarks() *FaceLandmarks {
	f := NeutralFaceLandmarks()
	setEyebrowHeight(f, 0.30)
	return f
}

// HeadTiltLandmarks returns a neutral face whose nose-chin axis produces the
// given head tilt angle in degrees.
func HeadTiltLandmarks(angle float64) *FaceLandmarks {
	f := NeutralFaceLandmarks()
	setHeadTilt(f, angle)
	return f
}

func setEyeOpening(f *FaceLandmarks, opening float64) {
	f.Points[RightEyeTop] = Point{X: 0.40, Y: 0.40 - opening/2}
	f.Points[RightEyeBottom] = Point{X: 0.40, Y: 0.40 + opening/2}
	f.Points[LeftEyeTop] = Point{X: 0.60, Y: 0.40 - opening/2}
	f.Points[LeftEyeBottom] = Point{X: 0.60, Y: 0.40 + opening/2}
}

func setMouthOpening(f *FaceLandmarks, opening float64) {
	f.Points[MouthTop] = Point{X: 0.5, Y: 0.65 - opening/2}
	f.Points[MouthBottom] = Point{X: 0.5, Y: 0.65 + opening/2}
}

func setEyebrowHeight(f *FaceLandmarks, y float64) {
	f.Points[RightEyebrow] = Point{X: 0.38, Y: y}
	f.Points[LeftEyebrow] = Point{X: 0.62, Y: y}
}

func setHeadTilt(f *FaceLandmarks, angle float64) {
	chin := Point{X: 0.5, Y: 0.80}
	rad := angle * math.Pi / 180
	f.Points[Chin] = chin
	f.Points[NoseTip] = Point{
		X: chin.X + faceHeight*math.Sin(rad),
		Y: chin.Y + faceHeight*math.Cos(rad),
	}
}
