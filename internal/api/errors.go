package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the gateway's error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, detail string) {
	respondJSON(w, statusCode, ErrorResponse{Detail: detail})
}

// respondStoreError maps a store failure onto its status and detail.
func respondStoreError(w http.ResponseWriter, err error) {
	status, detail := statusOf(err)
	respondError(w, status, detail)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	if data == nil {
		w.WriteHeader(statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
