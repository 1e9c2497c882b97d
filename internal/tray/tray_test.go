package tray

import "testing"

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("new tray should be enabled")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if tr.IsEnabled() != true {
		t.Error("two toggles should leave the tray enabled")
	}
	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	// Unset callbacks are skipped.
	tr.call(func() func() { return tr.onReset })

	resets := 0
	tr.OnReset(func() { resets++ })
	tr.call(func() func() { return tr.onReset })
	if resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}
}

func TestTray_LastGesture(t *testing.T) {
	tr := New()
	if tr.LastGesture() != "" {
		t.Errorf("LastGesture() = %q, want empty", tr.LastGesture())
	}

	tr.SetLastGesture("Double Blink")
	if tr.LastGesture() != "Double Blink" {
		t.Errorf("LastGesture() = %q", tr.LastGesture())
	}

	tests := []struct {
		name string
		want string
	}{
		{"", "Last: none"},
		{"Mouth Open", "Last: Mouth Open"},
	}
	for _, tt := range tests {
		if got := lastTitle(tt.name); got != tt.want {
			t.Errorf("lastTitle(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
