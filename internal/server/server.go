// Package server provides the HTTP and WebSocket front end of the facecomm service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/config"
	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/plugin"
	"github.com/ayusman/facecomm/internal/server/api"
	"github.com/ayusman/facecomm/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Camera    capture.Camera
	Detector  detector.Detector
	Plugins   *plugin.Manager

	// Thresholds are used by sessions when no profile is active. Zero means
	// gesture.DefaultThresholds.
	Thresholds gesture.Thresholds
	Phrases    config.Phrases

	// Record stores every frame's features so sessions can be replayed.
	Record bool

	// OnEvent, if set, receives every gesture emitted by any /ws session.
	OnEvent func(sessionID string, ev gesture.Event)

	Logger *slog.Logger
}

// Server represents the HTTP server for the facecomm service.
type Server struct {
	config    Config
	mux       *http.ServeMux
	start     time.Time
	landmarks *LandmarksHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Thresholds == (gesture.Thresholds{}) {
		config.Thresholds = gesture.DefaultThresholds()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/config", api.NewConfigHandler(s.config.Store, s.config.Phrases, s.config.Thresholds))

	s.mux.Handle("/ws", &GestureSocket{
		detector:   s.config.Detector,
		store:      s.config.Store,
		thresholds: s.config.Thresholds,
		record:     s.config.Record,
		onEvent:    s.config.OnEvent,
		logger:     s.config.Logger.With("component", "ws"),
	})

	if s.config.Store != nil {
		profiles := api.NewProfileHandler(s.config.Store, s.config.Thresholds)
		actions := api.NewActionHandler(s.config.Store, s.config.Plugins)
		sessions := api.NewSessionHandler(s.config.Store)

		s.mux.Handle("/api/profiles", profiles)
		s.mux.Handle("/api/profiles/", profiles)
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Plugins != nil {
		s.mux.HandleFunc("/api/plugins", s.handlePlugins)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	if s.config.Camera != nil && s.config.Detector != nil {
		s.landmarks = NewLandmarksHandler(s.config.Detector, s.config.Camera, s.config.Logger.With("component", "landmarks"))
		s.mux.Handle("/api/landmarks", s.landmarks)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":   "ok",
		"uptime":   time.Since(s.start).String(),
		"detector": s.config.Detector != nil,
		"camera":   s.config.Camera != nil,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

type pluginInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// handlePlugins handles GET /api/plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	plugins := s.config.Plugins.List()
	response := struct {
		Plugins []pluginInfo `json:"plugins"`
	}{Plugins: make([]pluginInfo, 0, len(plugins))}
	for _, p := range plugins {
		response.Plugins = append(response.Plugins, pluginInfo{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     p.Manifest.Actions,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.landmarks != nil {
		go s.landmarks.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.config.Logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
