package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"event-gallery-backend/internal/middleware"
	"event-gallery-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const eventNotFound = "Event not found"

// RegistrationLinkResponse is the attendee sign-up link of an event
type RegistrationLinkResponse struct {
	EventID string `json:"event_id"`
	URL     string `json:"url"`
}

// EventHandler handles the organizer's event management requests
type EventHandler struct {
	registry *services.Registry
	resolver *services.GalleryResolver
	hub      *services.WSHub
	baseURL  string
}

// NewEventHandler creates a new event handler. baseURL is the public
// site registration links point at.
func NewEventHandler(
	registry *services.Registry,
	resolver *services.GalleryResolver,
	hub *services.WSHub,
	baseURL string,
) *EventHandler {
	return &EventHandler{
		registry: registry,
		resolver: resolver,
		hub:      hub,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// ListEvents handles GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.registry.ListEvents(), http.StatusOK)
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req services.EventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.registry.CreateEvent(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}

	log.Info().
		Str("event_id", event.ID).
		Str("admin", middleware.GetUsername(r.Context())).
		Msg("Event created")
	respondJSON(w, event, http.StatusCreated)
}

// GetEvent handles GET /api/events/{event_id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.registry.GetEvent(chi.URLParam(r, "event_id"))
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	respondJSON(w, event, http.StatusOK)
}

// UpdateEvent handles PUT /api/events/{event_id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req services.EventUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.registry.UpdateEvent(r.Context(), chi.URLParam(r, "event_id"), req)
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	respondJSON(w, event, http.StatusOK)
}

// DeleteEvent handles DELETE /api/events/{event_id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	if err := h.registry.DeleteEvent(r.Context(), eventID); err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	h.hub.CloseEvent(eventID)

	log.Info().
		Str("event_id", eventID).
		Str("admin", middleware.GetUsername(r.Context())).
		Msg("Event deleted")
	respondJSON(w, MessageResponse{Message: "Event deleted"}, http.StatusOK)
}

// RegistrationLink handles GET /api/events/{event_id}/registration
func (h *EventHandler) RegistrationLink(w http.ResponseWriter, r *http.Request) {
	event, err := h.registry.GetEvent(chi.URLParam(r, "event_id"))
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	respondJSON(w, RegistrationLinkResponse{
		EventID: event.ID,
		URL:     h.baseURL + "/register?event=" + url.QueryEscape(event.ID),
	}, http.StatusOK)
}

// Leads handles GET /api/events/{event_id}/leads
func (h *EventHandler) Leads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.resolver.ExportLeads(chi.URLParam(r, "event_id"))
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	respondJSON(w, leads, http.StatusOK)
}

// Uploads handles GET /api/events/{event_id}/uploads
func (h *EventHandler) Uploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.resolver.ListUploads(chi.URLParam(r, "event_id"))
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	respondJSON(w, uploads, http.StatusOK)
}
