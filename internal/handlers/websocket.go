package handlers

import (
	"net/http"

	"event-gallery-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // slideshow screens are public
	},
}

// WebSocketHandler streams new uploads to slideshow screens
type WebSocketHandler struct {
	hub      *services.WSHub
	resolver *services.GalleryResolver
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, resolver *services.GalleryResolver) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		resolver: resolver,
	}
}

// HandleSlideshow handles GET /api/slideshow/{event_id}/ws. The viewer
// first receives the current slideshow, then one upload_created message
// per new upload.
func (h *WebSocketHandler) HandleSlideshow(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	slideshow, err := h.resolver.ResolveSlideshow(eventID)
	if err != nil {
		respondServiceError(w, err, eventNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	if err := conn.WriteJSON(services.WSMessage{Type: "slideshow", EventID: eventID, Data: slideshow}); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("Failed to send slideshow")
		conn.Close()
		return
	}

	h.hub.Register(eventID, conn)
	defer h.hub.Unregister(eventID, conn)

	// Viewers only listen; reading keeps control frames flowing and
	// notices when the screen goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("event_id", eventID).Msg("WebSocket error")
			}
			return
		}
	}
}
