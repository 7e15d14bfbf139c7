package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"event-gallery-backend/internal/messaging"
)

// FaceMatcher decides which candidate participants appear in a stored
// media asset. Its answer is authoritative; an empty result is final.
type FaceMatcher interface {
	FindMatches(ctx context.Context, mediaRef string, candidateIDs []string) ([]string, error)
}

// FaceEnroller is implemented by providers that need a participant's
// selfie indexed before they can find them in media.
type FaceEnroller interface {
	Enroll(ctx context.Context, participantID, selfieRef string) error
}

// NoopMatcher never finds anyone
type NoopMatcher struct{}

// FindMatches implements FaceMatcher
func (NoopMatcher) FindMatches(ctx context.Context, mediaRef string, candidateIDs []string) ([]string, error) {
	return nil, nil
}

// SampleMatcher pretends up to Max random candidates appear in every
// upload. Demo only, so galleries show something without a real
// recognition backend.
type SampleMatcher struct {
	Max int
}

// FindMatches implements FaceMatcher
func (s SampleMatcher) FindMatches(ctx context.Context, mediaRef string, candidateIDs []string) ([]string, error) {
	n := min(s.Max, len(candidateIDs))
	if n <= 0 {
		return nil, nil
	}
	picked := make([]string, len(candidateIDs))
	copy(picked, candidateIDs)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:n], nil
}

// HTTPMatcher delegates recognition to an external service speaking JSON
type HTTPMatcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPMatcher creates a matcher posting to endpoint
func NewHTTPMatcher(endpoint string, timeout time.Duration) *HTTPMatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPMatcher{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

type matchRequest struct {
	Media      string   `json:"media"`
	Candidates []string `json:"candidates"`
}

type matchResponse struct {
	Matches []string `json:"matches"`
}

type enrollRequest struct {
	ParticipantID string `json:"participant_id"`
	Selfie        string `json:"selfie"`
}

// FindMatches implements FaceMatcher
func (h *HTTPMatcher) FindMatches(ctx context.Context, mediaRef string, candidateIDs []string) ([]string, error) {
	var resp matchResponse
	if err := h.post(ctx, h.endpoint+"/match", matchRequest{Media: mediaRef, Candidates: candidateIDs}, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// Enroll implements FaceEnroller
func (h *HTTPMatcher) Enroll(ctx context.Context, participantID, selfieRef string) error {
	return h.post(ctx, h.endpoint+"/enroll", enrollRequest{ParticipantID: participantID, Selfie: selfieRef}, nil)
}

func (h *HTTPMatcher) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %w", messaging.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: face service unreachable: %w", messaging.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: face service returned status %d", messaging.ErrTransport, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode face service response: %w", messaging.ErrTransport, err)
	}
	return nil
}
