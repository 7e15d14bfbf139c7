package handlers

import (
	"net/http"

	"event-gallery-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// GalleryHandler serves the public read views
type GalleryHandler struct {
	resolver *services.GalleryResolver
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(resolver *services.GalleryResolver) *GalleryHandler {
	return &GalleryHandler{resolver: resolver}
}

// Gallery handles GET /api/gallery/{token}
func (h *GalleryHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	gallery, err := h.resolver.ResolveGallery(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondServiceError(w, err, "Gallery not found")
		return
	}
	respondJSON(w, gallery, http.StatusOK)
}

// Slideshow handles GET /api/slideshow/{event_id}
func (h *GalleryHandler) Slideshow(w http.ResponseWriter, r *http.Request) {
	slideshow, err := h.resolver.ResolveSlideshow(chi.URLParam(r, "event_id"))
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	respondJSON(w, slideshow, http.StatusOK)
}

// PublicEvent handles GET /api/public/events/{event_id}
func (h *GalleryHandler) PublicEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.resolver.PublicEvent(chi.URLParam(r, "event_id"))
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}
	respondJSON(w, event, http.StatusOK)
}
