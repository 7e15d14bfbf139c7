package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"event-gallery-backend/internal/middleware"
	"event-gallery-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// LoginRequest represents a dashboard login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token of a new session
type LoginResponse struct {
	Token string `json:"token"`
}

// AuthHandler handles dashboard session requests
type AuthHandler struct {
	sessions *services.SessionStore
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *services.SessionStore) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			log.Warn().Str("username", req.Username).Msg("Rejected login")
			respondError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		respondServiceError(w, err, "")
		return
	}

	log.Info().Str("username", req.Username).Msg("Admin logged in")
	respondJSON(w, LoginResponse{Token: token}, http.StatusOK)
}

// Logout handles POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(middleware.GetToken(r.Context()))
	respondJSON(w, MessageResponse{Message: "Logged out"}, http.StatusOK)
}
