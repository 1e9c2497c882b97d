package gesture

import (
	"fmt"
	"strings"
)

// Kind identifies a recognized facial gesture.
type Kind int

const (
	// None means no gesture fired this frame.
	None Kind = iota
	// DoubleBlink is two blinks in quick succession ("yes").
	DoubleBlink
	// LongClose is eyes held shut for the full long-close window ("no").
	LongClose
	// EyebrowsRaised is brows lifted above the calibrated baseline ("menu").
	EyebrowsRaised
	// MouthOpen is the mouth held open ("select").
	MouthOpen
	// HeadTiltLeft is the head tilted to the left ("previous").
	HeadTiltLeft
	// HeadTiltRight is the head tilted to the right ("next").
	HeadTiltRight

	numKinds
)

// Kinds lists every gesture in evaluation order.
var Kinds = []Kind{DoubleBlink, LongClose, MouthOpen, EyebrowsRaised, HeadTiltLeft, HeadTiltRight}

var kindNames = [numKinds]string{
	None:           "NONE",
	DoubleBlink:    "DOUBLE_BLINK",
	LongClose:      "LONG_CLOSE",
	EyebrowsRaised: "EYEBROWS_RAISED",
	MouthOpen:      "MOUTH_OPEN",
	HeadTiltLeft:   "HEAD_TILT_LEFT",
	HeadTiltRight:  "HEAD_TILT_RIGHT",
}

var kindLabels = [numKinds]string{
	None:           "None",
	DoubleBlink:    "Double blink (yes)",
	LongClose:      "Long close (no)",
	EyebrowsRaised: "Eyebrows raised (menu)",
	MouthOpen:      "Mouth open (select)",
	HeadTiltLeft:   "Head tilt left (previous)",
	HeadTiltRight:  "Head tilt right (next)",
}

// String returns the wire name, e.g. "DOUBLE_BLINK".
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Label returns a human-readable name including the gesture's meaning.
func (k Kind) Label() string {
	if k < 0 || k >= numKinds {
		return k.String()
	}
	return kindLabels[k]
}

// ParseKind parses a wire name such as "MOUTH_OPEN" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
