// Package api provides the HTTP API handlers for the facecomm service.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// timeLayout is used for every timestamp in API responses.
const timeLayout = time.RFC3339

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// splitPath trims prefix from the request path and returns the remaining
// non-empty segments, so "/api/sessions/abc/events" yields ["abc", "events"].
func splitPath(r *http.Request, prefix string) []string {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
