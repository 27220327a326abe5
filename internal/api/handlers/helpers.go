// Package handlers contains the HTTP handlers behind the API routes.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response with a consistent shape.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// parseLimit extracts and clamps the "limit" query parameter.
func parseLimit(r *http.Request) int {
	limit := defaultListLimit
	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 {
		if lim > maxListLimit {
			lim = maxListLimit
		}
		limit = lim
	}
	return limit
}
