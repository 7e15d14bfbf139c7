package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"event-gallery-backend/internal/services"
)

type contextKey string

const (
	usernameKey contextKey = "username"
	tokenKey    contextKey = "token"
)

// AuthMiddleware rejects requests without an open admin session
func AuthMiddleware(sessions *services.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token := parts[1]
			username, err := sessions.Validate(token)
			if err != nil {
				respondError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), usernameKey, username)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsername extracts the admin username from context
func GetUsername(ctx context.Context) string {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok {
		return ""
	}
	return username
}

// GetToken extracts the session token from context
func GetToken(ctx context.Context) string {
	token, ok := ctx.Value(tokenKey).(string)
	if !ok {
		return ""
	}
	return token
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
