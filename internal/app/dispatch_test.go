package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/logging"
	"github.com/ayusman/facecomm/internal/plugin"
	"github.com/ayusman/facecomm/internal/store"
)

// writeScriptPlugin installs a shell plugin under root that saves its request
// to request.json in the plugin dir and prints reply.
func writeScriptPlugin(t *testing.T, root, name, reply string, actions ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest, err := json.Marshal(plugin.Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: "run.sh",
		Actions:    actions,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), manifest, 0o644); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\ncat > request.json\necho '" + reply + "'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestDispatcher(t *testing.T, s *store.Store, root string) *Dispatcher {
	t.Helper()
	plugins := plugin.NewManager(root, logging.Discard())
	if err := plugins.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	return NewDispatcher(s, plugins, plugin.NewExecutor(5*time.Second, logging.Discard()), logging.Discard())
}

func bind(t *testing.T, s *store.Store, id string, k gesture.Kind, pluginName, action string, enabled bool) {
	t.Helper()
	err := s.Actions().Create(&store.Action{
		ID:         id,
		Gesture:    k,
		PluginName: pluginName,
		ActionName: action,
		Config:     json.RawMessage(`{"text":"yes"}`),
		Enabled:    enabled,
	})
	if err != nil {
		t.Fatalf("Create action: %v", err)
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()
	dir := writeScriptPlugin(t, root, "speech", `{"success":true}`, "say")
	bind(t, s, "a1", gesture.DoubleBlink, "speech", "say", true)

	d := newTestDispatcher(t, s, root)
	ev := gesture.Event{ID: "e1", Kind: gesture.DoubleBlink, Time: time.UnixMilli(1700000000123)}
	if err := d.Dispatch(context.Background(), "sess-1", ev); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "request.json"))
	if err != nil {
		t.Fatalf("plugin did not receive a request: %v", err)
	}
	var req plugin.Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("invalid request JSON %q: %v", data, err)
	}

	if req.Action != "say" {
		t.Errorf("Action = %q, want say", req.Action)
	}
	if req.Gesture != "DOUBLE_BLINK" {
		t.Errorf("Gesture = %q, want DOUBLE_BLINK", req.Gesture)
	}
	if req.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", req.SessionID)
	}
	if req.Timestamp != 1700000000123 {
		t.Errorf("Timestamp = %d, want 1700000000123", req.Timestamp)
	}
	if string(req.Config) != `{"text":"yes"}` {
		t.Errorf("Config = %s", req.Config)
	}
}

func TestDispatcher_Unbound(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()
	dir := writeScriptPlugin(t, root, "speech", `{"success":true}`, "say")
	bind(t, s, "a1", gesture.DoubleBlink, "speech", "say", false)

	d := newTestDispatcher(t, s, root)
	for _, k := range []gesture.Kind{gesture.DoubleBlink, gesture.HeadTiltLeft} {
		if err := d.Dispatch(context.Background(), "sess-1", gesture.Event{Kind: k, Time: time.Now()}); err != nil {
			t.Errorf("Dispatch(%s) error = %v", k, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "request.json")); !os.IsNotExist(err) {
		t.Error("disabled or unbound gestures must not run a plugin")
	}
}

func TestDispatcher_Failures(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()
	writeScriptPlugin(t, root, "broken", `{"success":false,"error":"no audio device"}`, "say")
	okDir := writeScriptPlugin(t, root, "speech", `{"success":true}`, "say")

	bind(t, s, "a1", gesture.LongClose, "missing", "say", true)
	bind(t, s, "a2", gesture.LongClose, "broken", "say", true)
	bind(t, s, "a3", gesture.LongClose, "speech", "say", true)

	d := newTestDispatcher(t, s, root)
	err := d.Dispatch(context.Background(), "sess-1", gesture.Event{Kind: gesture.LongClose, Time: time.Now()})
	if err == nil {
		t.Fatal("Dispatch() should report failing bindings")
	}
	if !errors.Is(err, plugin.ErrPluginNotFound) {
		t.Errorf("error %v should wrap ErrPluginNotFound", err)
	}

	if _, err := os.Stat(filepath.Join(okDir, "request.json")); err != nil {
		t.Error("a failing binding must not stop the others")
	}
}

func TestDispatcher_Go(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()
	dir := writeScriptPlugin(t, root, "media", `{"success":true}`, "next")
	bind(t, s, "a1", gesture.HeadTiltRight, "media", "next", true)

	d := newTestDispatcher(t, s, root)
	d.Go("sess-1", gesture.Event{Kind: gesture.HeadTiltRight, Time: time.Now()})
	d.Wait()

	if _, err := os.Stat(filepath.Join(dir, "request.json")); err != nil {
		t.Errorf("background dispatch did not run: %v", err)
	}
}
