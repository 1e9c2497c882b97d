package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ayusman/facecomm/internal/gesture"
)

func TestActionRepository_CRUD(t *testing.T) {
	repo := newTestStore(t).Actions()

	a := &Action{
		ID:         "a1",
		Gesture:    gesture.DoubleBlink,
		PluginName: "speech",
		ActionName: "say",
		Config:     json.RawMessage(`{"phrase":"affirm"}`),
		Enabled:    true,
	}
	if err := repo.Create(a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID("a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Gesture != gesture.DoubleBlink || got.PluginName != "speech" || !got.Enabled {
		t.Errorf("GetByID = %+v", got)
	}
	if string(got.Config) != `{"phrase":"affirm"}` {
		t.Errorf("Config = %s", got.Config)
	}

	got.Gesture = gesture.LongClose
	got.Enabled = false
	if err := repo.Update(got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, _ := repo.GetByID("a1")
	if updated.Gesture != gesture.LongClose || updated.Enabled {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := repo.Delete("a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID("a1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete("a1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestActionRepository_ListByGesture(t *testing.T) {
	repo := newTestStore(t).Actions()

	actions := []*Action{
		{ID: "1", Gesture: gesture.MouthOpen, PluginName: "speech", ActionName: "say", Enabled: true},
		{ID: "2", Gesture: gesture.MouthOpen, PluginName: "media", ActionName: "pause", Enabled: false},
		{ID: "3", Gesture: gesture.HeadTiltLeft, PluginName: "media", ActionName: "previous", Enabled: true},
	}
	for _, a := range actions {
		if err := repo.Create(a); err != nil {
			t.Fatalf("Create %s: %v", a.ID, err)
		}
	}

	got, err := repo.ListByGesture(gesture.MouthOpen)
	if err != nil {
		t.Fatalf("ListByGesture: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("ListByGesture(MOUTH_OPEN) = %v, want only the enabled binding", got)
	}
	if string(got[0].Config) != "{}" {
		t.Errorf("default config = %s, want {}", got[0].Config)
	}

	none, err := repo.ListByGesture(gesture.EyebrowsRaised)
	if err != nil {
		t.Fatalf("ListByGesture: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unbound gesture returned %d actions", len(none))
	}

	all, _ := repo.List()
	if len(all) != 3 {
		t.Errorf("List returned %d actions, want 3", len(all))
	}
}
