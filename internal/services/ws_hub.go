package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a message pushed to slideshow viewers
type WSMessage struct {
	Type    string      `json:"type"`
	EventID string      `json:"event_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSHub tracks the live slideshow connections of every event
type WSHub struct {
	mu      sync.RWMutex
	viewers map[string]map[*websocket.Conn]*sync.Mutex
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		viewers: make(map[string]map[*websocket.Conn]*sync.Mutex),
	}
}

// Register adds a viewer connection to an event's slideshow
func (h *WSHub) Register(eventID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.viewers[eventID]
	if !ok {
		conns = make(map[*websocket.Conn]*sync.Mutex)
		h.viewers[eventID] = conns
	}
	conns[conn] = &sync.Mutex{}

	log.Info().Str("event_id", eventID).Int("viewers", len(conns)).Msg("Slideshow viewer registered")
}

// Unregister removes and closes a viewer connection
func (h *WSHub) Unregister(eventID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.viewers[eventID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; !exists {
		return
	}
	conn.Close()
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.viewers, eventID)
	}
	log.Info().Str("event_id", eventID).Msg("Slideshow viewer unregistered")
}

// Viewers returns how many connections watch the event
func (h *WSHub) Viewers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[eventID])
}

// Publish sends msg to every viewer of the event. Viewers whose write
// fails are dropped.
func (h *WSHub) Publish(eventID string, msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.viewers[eventID]))
	for conn, writeMu := range h.viewers[eventID] {
		targets[conn] = writeMu
	}
	h.mu.RUnlock()

	for conn, writeMu := range targets {
		writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		writeMu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("event_id", eventID).Msg("Dropping slideshow viewer")
			h.Unregister(eventID, conn)
		}
	}
	return nil
}

// CloseEvent disconnects every viewer of a deleted event
func (h *WSHub) CloseEvent(eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.viewers[eventID] {
		conn.Close()
	}
	delete(h.viewers, eventID)
}
