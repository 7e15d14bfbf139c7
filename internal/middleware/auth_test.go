package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"event-gallery-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	table, err := services.NewCredentialTable([]services.AdminCredential{{Username: "admin", Password: "pw"}})
	require.NoError(t, err)
	sessions := services.NewSessionStore(table, "secret")
	token, err := sessions.Login("admin", "pw")
	require.NoError(t, err)

	var gotUser, gotToken string
	handler := AuthMiddleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUsername(r.Context())
		gotToken = GetToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid session", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, token, gotToken)
}
