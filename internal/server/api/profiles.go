package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/facecomm/internal/config"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/store"
)

// ProfileHandler handles HTTP requests for threshold profiles.
type ProfileHandler struct {
	store    *store.Store
	defaults gesture.Thresholds
}

// NewProfileHandler creates a ProfileHandler. New profiles without explicit
// thresholds start from defaults.
func NewProfileHandler(s *store.Store, defaults gesture.Thresholds) *ProfileHandler {
	return &ProfileHandler{store: s, defaults: defaults}
}

// ServeHTTP routes /api/profiles, /api/profiles/{id} and
// /api/profiles/{id}/activate.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/profiles")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 2:
		if parts[1] != "activate" {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Thresholds in requests are partial: omitted fields keep the base value
// (the defaults on create, the stored profile on update).
type createProfileRequest struct {
	Name       string          `json:"name"`
	Thresholds json.RawMessage `json:"thresholds"`
}

type updateProfileRequest struct {
	Name       string          `json:"name"`
	Thresholds json.RawMessage `json:"thresholds"`
}

type profileResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Thresholds config.Thresholds `json:"thresholds"`
	Active     bool              `json:"active"`
	Warnings   []string          `json:"warnings,omitempty"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
	ActiveID string            `json:"active_id,omitempty"`
}

func toProfileResponse(p *store.Profile, activeID string) profileResponse {
	return profileResponse{
		ID:         p.ID,
		Name:       p.Name,
		Thresholds: config.FromGesture(p.Thresholds),
		Active:     p.ID == activeID,
		CreatedAt:  p.CreatedAt.Format(timeLayout),
		UpdatedAt:  p.UpdatedAt.Format(timeLayout),
	}
}

// activeID returns the active profile's ID, or "" when none is selected.
func (h *ProfileHandler) activeID() (string, error) {
	_, id, err := h.store.Profiles().ActiveThresholds(h.defaults)
	return id, err
}

// mergeThresholds overlays the fields present in raw onto base.
func mergeThresholds(base gesture.Thresholds, raw json.RawMessage) (gesture.Thresholds, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	file := config.FromGesture(base)
	if err := json.Unmarshal(raw, &file); err != nil {
		return base, err
	}
	return file.Gesture(), nil
}

// validate checks thresholds and converts warnings to strings.
func validate(th gesture.Thresholds) ([]string, error) {
	warnings, err := config.ValidateThresholds(th)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Message)
	}
	return out, nil
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}
	active, err := h.activeID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load active profile")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
		ActiveID: active,
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toProfileResponse(p, active))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}
	active, _ := h.activeID()

	writeJSON(w, http.StatusOK, toProfileResponse(profile, active))
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	th, err := mergeThresholds(h.defaults, req.Thresholds)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid thresholds")
		return
	}
	warnings, err := validate(th)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Profiles().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Profile name already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check profile name")
		return
	}

	profile := &store.Profile{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Thresholds: th,
	}
	if err := h.store.Profiles().Create(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	resp := toProfileResponse(profile, "")
	resp.Warnings = warnings
	writeJSON(w, http.StatusCreated, resp)
}

// update handles PUT /api/profiles/{id}.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		profile.Name = req.Name
	}
	var warnings []string
	if len(req.Thresholds) > 0 {
		th, err := mergeThresholds(profile.Thresholds, req.Thresholds)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid thresholds")
			return
		}
		warnings, err = validate(th)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		profile.Thresholds = th
	}

	if err := h.store.Profiles().Update(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	active, _ := h.activeID()

	resp := toProfileResponse(profile, active)
	resp.Warnings = warnings
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Profiles().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/profiles/{id}/activate. New sessions pick up the
// active profile's thresholds; running sessions keep theirs.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Profiles().SetActive(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate profile")
		return
	}

	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile, id))
}
