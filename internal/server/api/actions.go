package api

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/plugin"
	"github.com/ayusman/facecomm/internal/store"
)

// ActionHandler handles HTTP requests for gesture-to-plugin bindings.
type ActionHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewActionHandler creates a new ActionHandler. When plugins is non-nil,
// bindings are checked against the discovered plugins and their actions.
func NewActionHandler(s *store.Store, plugins *plugin.Manager) *ActionHandler {
	return &ActionHandler{store: s, plugins: plugins}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/actions")

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
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createActionRequest struct {
	Gesture    string          `json:"gesture"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
}

type updateActionRequest struct {
	Gesture    string          `json:"gesture"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type actionResponse struct {
	ID           string          `json:"id"`
	Gesture      gesture.Kind    `json:"gesture"`
	GestureLabel string          `json:"gesture_label"`
	PluginName   string          `json:"plugin_name"`
	ActionName   string          `json:"action_name"`
	Config       json.RawMessage `json:"config"`
	Enabled      bool            `json:"enabled"`
	CreatedAt    string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

// toActionResponse converts a store.Action to an actionResponse.
func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:           a.ID,
		Gesture:      a.Gesture,
		GestureLabel: a.Gesture.Label(),
		PluginName:   a.PluginName,
		ActionName:   a.ActionName,
		Config:       config,
		Enabled:      a.Enabled,
		CreatedAt:    a.CreatedAt.Format(timeLayout),
	}
}

// parseGesture accepts any gesture wire name except NONE.
func parseGesture(name string) (gesture.Kind, error) {
	k, err := gesture.ParseKind(name)
	if err != nil {
		return gesture.None, err
	}
	if k == gesture.None {
		return gesture.None, errors.New("gesture NONE cannot be bound")
	}
	return k, nil
}

// checkPlugin verifies that the named plugin exists and lists the action.
func (h *ActionHandler) checkPlugin(pluginName, actionName string) error {
	if h.plugins == nil {
		return nil
	}
	p, err := h.plugins.Get(pluginName)
	if err != nil {
		return err
	}
	if len(p.Manifest.Actions) > 0 && !p.Manifest.Supports(actionName) {
		return plugin.ErrUnsupportedAction
	}
	return nil
}

// list handles GET /api/actions and returns all actions.
func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.Actions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{
		Actions: make([]actionResponse, 0, len(actions)),
	}

	for _, a := range actions {
		response.Actions = append(response.Actions, toActionResponse(a))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/actions/{id} and returns a single action.
func (h *ActionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// create handles POST /api/actions and creates a new action.
func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	for _, f := range [][2]string{
		{"gesture", req.Gesture},
		{"plugin_name", req.PluginName},
		{"action_name", req.ActionName},
	} {
		if f[1] == "" {
			writeError(w, http.StatusBadRequest, f[0]+" is required")
			return
		}
	}

	kind, err := parseGesture(req.Gesture)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	action := &store.Action{
		ID:         uuid.New().String(),
		Gesture:    kind,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    true,
	}
	if action.Config == nil {
		action.Config = json.RawMessage("{}")
	}

	if status, err := h.validate(action); err != nil {
		writeError(w, status, err.Error())
		return
	}
	if err := h.store.Actions().Create(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}

	writeJSON(w, http.StatusCreated, toActionResponse(action))
}

// update handles PUT /api/actions/{id}. Omitted fields keep their values.
func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	var req updateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Gesture != "" {
		if action.Gesture, err = parseGesture(req.Gesture); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	action.PluginName = cmp.Or(req.PluginName, action.PluginName)
	action.ActionName = cmp.Or(req.ActionName, action.ActionName)
	if req.Config != nil {
		action.Config = req.Config
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}

	if status, err := h.validate(action); err != nil {
		writeError(w, status, err.Error())
		return
	}
	if err := h.store.Actions().Update(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// validate checks the plugin reference and that no other enabled binding
// exists for the same gesture. It returns the HTTP status to report.
func (h *ActionHandler) validate(a *store.Action) (int, error) {
	if err := h.checkPlugin(a.PluginName, a.ActionName); err != nil {
		return http.StatusBadRequest, err
	}
	if !a.Enabled {
		return http.StatusOK, nil
	}

	bound, err := h.store.Actions().ListByGesture(a.Gesture)
	if err != nil {
		return http.StatusInternalServerError, errors.New("failed to check existing actions")
	}
	for _, b := range bound {
		if b.ID != a.ID {
			return http.StatusConflict, fmt.Errorf("%s is already bound to %s/%s", a.Gesture, b.PluginName, b.ActionName)
		}
	}
	return http.StatusOK, nil
}

// delete handles DELETE /api/actions/{id} and removes an action.
func (h *ActionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Actions().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
