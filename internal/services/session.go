package services

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredential is one configured dashboard account. Either Password
// (hashed at startup) or a precomputed bcrypt PasswordHash is set.
type AdminCredential struct {
	Username     string
	Password     string
	PasswordHash string
}

// CredentialTable maps admin usernames to salted password hashes.
// It is built once and never modified.
type CredentialTable map[string][]byte

// NewCredentialTable hashes the configured admin passwords
func NewCredentialTable(admins []AdminCredential) (CredentialTable, error) {
	table := make(CredentialTable, len(admins))
	for _, admin := range admins {
		if admin.Username == "" {
			return nil, fmt.Errorf("admin username cannot be empty")
		}
		if _, exists := table[admin.Username]; exists {
			return nil, fmt.Errorf("duplicate admin username %q", admin.Username)
		}

		if admin.PasswordHash != "" {
			hash := []byte(admin.PasswordHash)
			if _, err := bcrypt.Cost(hash); err != nil {
				return nil, fmt.Errorf("invalid password hash for %q: %w", admin.Username, err)
			}
			table[admin.Username] = hash
			continue
		}

		if admin.Password == "" {
			return nil, fmt.Errorf("admin %q has neither password nor password_hash", admin.Username)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %q: %w", admin.Username, err)
		}
		table[admin.Username] = hash
	}
	return table, nil
}

// SessionStore maps bearer tokens to admin usernames. Sessions live
// for the lifetime of the process and do not expire.
type SessionStore struct {
	mu          sync.RWMutex
	credentials CredentialTable
	secret      []byte
	sessions    map[string]string
}

// NewSessionStore creates a session store. An empty secret is replaced
// by a random one, which is fine since sessions never outlive the process.
func NewSessionStore(credentials CredentialTable, secret string) *SessionStore {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &SessionStore{
		credentials: credentials,
		secret:      key,
		sessions:    make(map[string]string),
	}
}

// Login checks the password and opens a new session
func (s *SessionStore) Login(username, password string) (string, error) {
	hash, ok := s.credentials[username]
	if !ok {
		return "", fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, err := s.sign(username)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[token] = username
	s.mu.Unlock()
	return token, nil
}

// Validate returns the username behind an open session
func (s *SessionStore) Validate(token string) (string, error) {
	s.mu.RLock()
	username, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: invalid session token", ErrUnauthorized)
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Subject != username {
		return "", fmt.Errorf("%w: invalid session token", ErrUnauthorized)
	}
	return username, nil
}

// Logout closes a session. Unknown tokens are ignored.
func (s *SessionStore) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *SessionStore) sign(username string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  username,
		ID:       uuid.New().String(),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
