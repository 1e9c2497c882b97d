package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/facecomm/internal/logging"
)

func writeManifest(t *testing.T, root string, m Manifest) string {
	t.Helper()

	dir := filepath.Join(root, m.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return dir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	pluginDir := writeManifest(t, tmpDir, Manifest{
		Name:        "speech",
		Version:     "1.0.0",
		Description: "Speaks phrases aloud",
		Executable:  "speech",
		Actions:     []string{"say", "stop"},
	})

	manager := NewManager(tmpDir, logging.Discard())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "speech" {
		t.Errorf("expected plugin name 'speech', got %q", plugin.Manifest.Name)
	}
	if plugin.Manifest.Description != "Speaks phrases aloud" {
		t.Errorf("unexpected description %q", plugin.Manifest.Description)
	}
	if len(plugin.Manifest.Actions) != 2 {
		t.Errorf("expected 2 actions, got %d", len(plugin.Manifest.Actions))
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if want := filepath.Join(pluginDir, "speech"); plugin.Executable != want {
		t.Errorf("expected executable %q, got %q", want, plugin.Executable)
	}
}

func TestManager_Discover_SortedList(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"media", "speech", "alerts"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Version: "1.0.0", Executable: name})
	}

	manager := NewManager(tmpDir, logging.Discard())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 3 {
		t.Fatalf("expected 3 plugins, got %d", len(plugins))
	}
	for i, want := range []string{"alerts", "media", "speech"} {
		if plugins[i].Manifest.Name != want {
			t.Errorf("plugins[%d] = %q, want %q", i, plugins[i].Manifest.Name, want)
		}
	}
}

func TestManager_Discover_SkipsBadManifests(t *testing.T) {
	tmpDir := t.TempDir()

	writeManifest(t, tmpDir, Manifest{Name: "good", Executable: "good"})
	writeManifest(t, tmpDir, Manifest{Name: "noexec"})

	broken := filepath.Join(tmpDir, "broken")
	if err := os.MkdirAll(broken, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(broken, "plugin.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "README"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(tmpDir, logging.Discard())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Fatalf("expected only 'good', got %v", plugins)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "nope"), logging.Discard())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() on missing dir should not fail: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	tmpDir := t.TempDir()
	dir := writeManifest(t, tmpDir, Manifest{Name: "media", Executable: "media"})

	manager := NewManager(tmpDir, logging.Discard())
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if len(manager.List()) != 1 {
		t.Fatal("expected 1 plugin")
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected removed plugin to disappear after rescan")
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "speech", Executable: "speech"})

	manager := NewManager(tmpDir, logging.Discard())
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	t.Run("found", func(t *testing.T) {
		p, err := manager.Get("speech")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p.Manifest.Name != "speech" {
			t.Errorf("got %q", p.Manifest.Name)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := manager.Get("missing")
		if !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("expected ErrPluginNotFound, got %v", err)
		}
	})
}

func TestManager_PluginDir(t *testing.T) {
	manager := NewManager("/some/path", nil)
	if manager.PluginDir() != "/some/path" {
		t.Errorf("PluginDir() = %q", manager.PluginDir())
	}
}
