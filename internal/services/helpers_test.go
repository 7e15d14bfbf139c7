package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"event-gallery-backend/internal/models"
	"event-gallery-backend/internal/repository"

	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestRegistry(t *testing.T) (*Registry, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	registry := NewRegistry(store, WithClock(newTestClock().Now))
	require.NoError(t, registry.Load(context.Background()))
	return registry, store
}

func createEvent(t *testing.T, r *Registry, name string) models.Event {
	t.Helper()
	event, err := r.CreateEvent(context.Background(), EventInput{Name: name})
	require.NoError(t, err)
	return event
}

// stubProvider reports a fixed set of ids as present in every upload,
// restricted to the offered candidates
type stubProvider struct {
	mu      sync.Mutex
	present map[string]bool
	err     error
	calls   int
}

func newStubProvider(present ...string) *stubProvider {
	p := &stubProvider{present: make(map[string]bool)}
	for _, id := range present {
		p.present[id] = true
	}
	return p
}

func (p *stubProvider) add(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present[id] = true
}

func (p *stubProvider) FindMatches(ctx context.Context, mediaRef string, candidateIDs []string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	var out []string
	for _, id := range candidateIDs {
		if p.present[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type notification struct {
	ParticipantID string
	EventID       string
	UploadID      string
	Phone         string
}

type recordingGateway struct {
	mu   sync.Mutex
	sent []notification
}

func (g *recordingGateway) Notify(ctx context.Context, participant models.Participant, event models.Event, upload models.Upload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, notification{
		ParticipantID: participant.ID,
		EventID:       event.ID,
		UploadID:      upload.ID,
		Phone:         participant.Phone,
	})
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func (g *recordingGateway) forParticipant(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.sent {
		if s.ParticipantID == id {
			n++
		}
	}
	return n
}

// memoryAssets is an in-process AssetStore
type memoryAssets struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newMemoryAssets() *memoryAssets {
	return &memoryAssets{files: make(map[string][]byte)}
}

func (m *memoryAssets) Save(ctx context.Context, data []byte, suggestedName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	ref := "ref_" + suggestedName
	m.files[ref] = data
	return ref, nil
}

func (m *memoryAssets) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[ref]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}
