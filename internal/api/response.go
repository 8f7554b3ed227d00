// Package api implements HTTP handlers for the currency conversion service.
package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string            `json:"message" example:"Invalid parameters"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes a single invalid request parameter.
type ValidationError struct {
	Field   string `json:"field" example:"amount"`
	Message string `json:"message" example:"Amount must be a non-negative number"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
