package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/logging"
	"github.com/ayusman/facecomm/internal/plugin"
)

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{Detector: detector.NewMockDetector(), Logger: logging.Discard()})

	rec := serve(s, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var health struct {
		Status   string `json:"status"`
		Uptime   string `json:"uptime"`
		Detector bool   `json:"detector"`
		Camera   bool   `json:"camera"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "ok" || health.Uptime == "" {
		t.Errorf("health = %+v", health)
	}
	if !health.Detector || health.Camera {
		t.Errorf("detector/camera = %v/%v, want true/false", health.Detector, health.Camera)
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		if rec := serve(s, method, "/api/health"); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s /api/health = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestServer_Routes(t *testing.T) {
	plugins := plugin.NewManager(t.TempDir(), logging.Discard())

	bare := New(Config{Logger: logging.Discard()})
	full := New(Config{Store: newTestStore(t), Plugins: plugins, Logger: logging.Discard()})

	tests := []struct {
		name   string
		server *Server
		path   string
		want   int
	}{
		{"config without store", bare, "/api/config", http.StatusOK},
		{"profiles need a store", bare, "/api/profiles", http.StatusNotFound},
		{"actions need a store", bare, "/api/actions", http.StatusNotFound},
		{"sessions need a store", bare, "/api/sessions", http.StatusNotFound},
		{"plugins need a manager", bare, "/api/plugins", http.StatusNotFound},
		{"stream needs a camera", bare, "/api/stream", http.StatusNotFound},
		{"landmarks need a camera", full, "/api/landmarks", http.StatusNotFound},
		{"unknown api path", full, "/api/nonexistent", http.StatusNotFound},
		{"no static dir", full, "/", http.StatusNotFound},
		{"ws without upgrade", bare, "/ws", http.StatusBadRequest},
		{"profiles", full, "/api/profiles", http.StatusOK},
		{"actions", full, "/api/actions", http.StatusOK},
		{"sessions", full, "/api/sessions", http.StatusOK},
		{"plugins", full, "/api/plugins", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(tt.server, http.MethodGet, tt.path); rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>facecomm</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: dir, Logger: logging.Discard()})

	rec := serve(s, http.MethodGet, "/")
	if rec.Code != http.StatusOK || rec.Body.String() != index {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(s, http.MethodGet, "/missing.js"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /missing.js = %d, want %d", rec.Code, http.StatusNotFound)
	}
	// API routes win over the static catch-all.
	if rec := serve(s, http.MethodGet, "/api/health"); rec.Code != http.StatusOK {
		t.Errorf("GET /api/health = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestNew(t *testing.T) {
	t.Run("zero thresholds fall back to defaults", func(t *testing.T) {
		s := New(Config{})
		if s.config.Thresholds != gesture.DefaultThresholds() {
			t.Errorf("thresholds = %+v, want defaults", s.config.Thresholds)
		}
		if s.config.Logger == nil {
			t.Error("logger should default to slog.Default")
		}
	})

	t.Run("custom thresholds are kept", func(t *testing.T) {
		th := gesture.DefaultThresholds()
		th.LongCloseFrames = 45
		s := New(Config{Thresholds: th})
		if s.config.Thresholds.LongCloseFrames != 45 {
			t.Errorf("LongCloseFrames = %d, want 45", s.config.Thresholds.LongCloseFrames)
		}
	})
}
