package api

import (
	"net/http"

	"github.com/ayusman/facecomm/internal/config"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/store"
)

// ConfigHandler serves GET /api/config: the phrase board, the gesture
// vocabulary, and the thresholds new sessions will use.
type ConfigHandler struct {
	store    *store.Store
	phrases  config.Phrases
	defaults gesture.Thresholds
}

// NewConfigHandler creates a ConfigHandler. s may be nil, in which case the
// defaults are always reported.
func NewConfigHandler(s *store.Store, phrases config.Phrases, defaults gesture.Thresholds) *ConfigHandler {
	return &ConfigHandler{store: s, phrases: phrases, defaults: defaults}
}

type gestureInfo struct {
	Type  gesture.Kind `json:"type"`
	Label string       `json:"label"`
}

type configResponse struct {
	Phrases    config.Phrases    `json:"phrases"`
	Gestures   []gestureInfo     `json:"gestures"`
	Thresholds config.Thresholds `json:"thresholds"`
	ProfileID  string            `json:"profile_id,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	th, profileID := h.defaults, ""
	if h.store != nil {
		var err error
		th, profileID, err = h.store.Profiles().ActiveThresholds(h.defaults)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load active profile")
			return
		}
	}

	response := configResponse{
		Phrases:    h.phrases,
		Gestures:   make([]gestureInfo, 0, len(gesture.Kinds)),
		Thresholds: config.FromGesture(th),
		ProfileID:  profileID,
	}
	for _, k := range gesture.Kinds {
		response.Gestures = append(response.Gestures, gestureInfo{Type: k, Label: k.Label()})
	}

	writeJSON(w, http.StatusOK, response)
}
