package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/store"
)

// DefaultSessionLimit caps GET /api/sessions when no limit is given.
const DefaultSessionLimit = 50

// SessionHandler serves recorded sessions and their gesture events.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/sessions, /api/sessions/{id},
// /api/sessions/{id}/events and /api/sessions/{id}/samples.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/sessions")

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.list(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.delete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "events" && r.Method == http.MethodGet:
		h.events(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "samples" && r.Method == http.MethodGet:
		h.samples(w, r, parts[0])
	case len(parts) <= 2:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Response types

type sessionResponse struct {
	ID        string               `json:"id"`
	Source    string               `json:"source"`
	ProfileID string               `json:"profile_id,omitempty"`
	Recorded  bool                 `json:"recorded"`
	Frames    int                  `json:"frames"`
	StartedAt string               `json:"started_at"`
	EndedAt   string               `json:"ended_at,omitempty"`
	Gestures  map[gesture.Kind]int `json:"gestures,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type eventResponse struct {
	ID         string       `json:"id"`
	Gesture    gesture.Kind `json:"gesture"`
	OccurredAt string       `json:"occurred_at"`
}

type listEventsResponse struct {
	SessionID string          `json:"session_id"`
	Events    []eventResponse `json:"events"`
}

type sampleResponse struct {
	Seq        int               `json:"seq"`
	CapturedAt int64             `json:"captured_at_ms"`
	Features   *gesture.Features `json:"features"`
}

type listSamplesResponse struct {
	SessionID string           `json:"session_id"`
	Samples   []sampleResponse `json:"samples"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		ProfileID: s.ProfileID,
		Recorded:  s.Recorded,
		Frames:    s.Frames,
		StartedAt: s.StartedAt.Format(timeLayout),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(timeLayout)
	}
	return resp
}

// list handles GET /api/sessions?limit=N, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and includes per-gesture event counts.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	counts, err := h.store.Events().CountByGesture(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	resp := toSessionResponse(session)
	resp.Gestures = counts
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// events handles GET /api/sessions/{id}/events.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	events, err := h.store.Events().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		SessionID: id,
		Events:    make([]eventResponse, 0, len(events)),
	}
	for _, ev := range events {
		response.Events = append(response.Events, eventResponse{
			ID:         ev.ID,
			Gesture:    ev.Gesture,
			OccurredAt: ev.OccurredAt.Format(timeLayout),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// samples handles GET /api/sessions/{id}/samples.
func (h *SessionHandler) samples(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	samples, err := h.store.Samples().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		SessionID: id,
		Samples:   make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			Seq:        s.Seq,
			CapturedAt: s.CapturedAt.UnixMilli(),
			Features:   s.Features,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
