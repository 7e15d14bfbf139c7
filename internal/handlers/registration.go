package handlers

import (
	"errors"
	"net/http"

	"event-gallery-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// RegisterResponse confirms an attendee registration
type RegisterResponse struct {
	ParticipantID string `json:"participant_id"`
	GalleryToken  string `json:"gallery_token"`
	Message       string `json:"message"`
}

// RegistrationHandler handles attendee sign-up
type RegistrationHandler struct {
	registration *services.RegistrationService
	maxBytes     int64
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registration *services.RegistrationService, maxBytes int64) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		maxBytes:     maxBytes,
	}
}

// Register handles POST /api/register
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	eventID := r.FormValue("event_id")
	phone := r.FormValue("phone")

	selfie, header, err := r.FormFile("selfie")
	if err != nil {
		respondError(w, "Selfie image is required", http.StatusBadRequest)
		return
	}
	defer selfie.Close()

	participant, err := h.registration.Register(r.Context(), eventID, phone, header.Filename, selfie)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondError(w, "Invalid event_id", http.StatusBadRequest)
			return
		}
		respondServiceError(w, err, "")
		return
	}

	log.Info().
		Str("event_id", eventID).
		Str("participant_id", participant.ID).
		Msg("Registration accepted")
	respondJSON(w, RegisterResponse{
		ParticipantID: participant.ID,
		GalleryToken:  participant.GalleryToken,
		Message:       services.ConfirmationMessage,
	}, http.StatusOK)
}
