package gesture

import "time"

// State is the per-frame classification snapshot.
type State struct {
	FaceDetected    bool      `json:"face_detected"`
	EyesClosed      bool      `json:"eyes_closed"`
	LeftEAR         float64   `json:"left_eye_ar"`
	RightEAR        float64   `json:"right_eye_ar"`
	MouthOpen       bool      `json:"mouth_open"`
	MouthAR         float64   `json:"mouth_ar"`
	EyebrowsRaised  bool      `json:"eyebrows_raised"`
	EyebrowPosition float64   `json:"eyebrow_position"`
	HeadTiltAngle   TiltAngle `json:"head_tilt_angle"`
	HeadTiltLeft    bool      `json:"head_tilt_left"`
	HeadTiltRight   bool      `json:"head_tilt_right"`
	HeadTiltCenter  bool      `json:"head_tilt_center"`

	// Detected holds the last gesture to fire this frame, or None. When several
	// gestures fire in one frame the later channel in Kinds order wins here;
	// every one of them is still reported as an Event.
	Detected Kind `json:"-"`
}

// neutralState is returned for frames without a face.
func neutralState() State {
	return State{HeadTiltCenter: true}
}

// Event is a single emitted gesture.
type Event struct {
	ID   string    `json:"id"`
	Kind Kind      `json:"type"`
	Time time.Time `json:"time"`
}

// Handler receives gesture events.
type Handler func(Event)
