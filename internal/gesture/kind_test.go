package gesture

import (
	"encoding/json"
	"testing"
)

func TestKind_ParseRoundTrip(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) error: %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}

	if _, err := ParseKind("wink"); err == nil {
		t.Error("expected error for unknown gesture")
	}
	if got, _ := ParseKind(" head_tilt_left "); got != HeadTiltLeft {
		t.Errorf("ParseKind is case-insensitive, got %v", got)
	}
}

func TestKind_JSON(t *testing.T) {
	ev := Event{ID: "e1", Kind: LongClose}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Type != "LONG_CLOSE" {
		t.Errorf("type = %q, want LONG_CLOSE", decoded.Type)
	}
}
