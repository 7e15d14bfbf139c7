package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"event-gallery-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, payload interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondServiceError maps a service error onto its HTTP status.
// Internal failures are logged and their details hidden.
func respondServiceError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, notFoundMessage, http.StatusNotFound)
	case errors.Is(err, services.ErrUnauthorized):
		respondError(w, "Unauthorized", http.StatusUnauthorized)
	default:
		log.Error().Err(err).Msg("Request failed")
		respondError(w, "Internal server error", http.StatusInternalServerError)
	}
}
