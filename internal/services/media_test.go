package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"event-gallery-backend/internal/messaging"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []WSMessage
}

func (p *recordingPublisher) Publish(eventID string, msg WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	event := createEvent(t, registry, "party")
	p, err := registry.CreateParticipant(ctx, event.ID, "+15551234567", "s.jpg")
	require.NoError(t, err)

	assets := newMemoryAssets()
	gateway := &recordingGateway{}
	matcher := NewMatcher(registry, newStubProvider(p.ID), gateway)
	resolver := NewGalleryResolver(registry, "/api/media")
	publisher := &recordingPublisher{}
	media := NewMediaService(registry, assets, matcher, resolver, publisher)

	upload, err := media.Ingest(ctx, event.ID, "photo.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "ref_photo.jpg", upload.Filename)
	assert.Equal(t, []string{p.ID}, upload.MatchedParticipants)
	assert.Equal(t, 1, gateway.count())

	data, err := media.Retrieve(ctx, upload.Filename)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "upload_created", publisher.messages[0].Type)
	assert.Equal(t, event.ID, publisher.messages[0].EventID)

	got, err := registry.GetEvent(event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{upload.ID}, got.Uploads)
}

func TestIngestUnknownEvent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	assets := newMemoryAssets()
	matcher := NewMatcher(registry, NoopMatcher{}, &recordingGateway{})
	media := NewMediaService(registry, assets, matcher, NewGalleryResolver(registry, ""), nil)

	_, err := media.Ingest(context.Background(), "missing", "photo.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, assets.files)
}

func TestIngestAssetFailure(t *testing.T) {
	registry, _ := newTestRegistry(t)
	event := createEvent(t, registry, "party")
	assets := newMemoryAssets()
	assets.err = errors.New("bucket gone")
	matcher := NewMatcher(registry, NoopMatcher{}, &recordingGateway{})
	media := NewMediaService(registry, assets, matcher, NewGalleryResolver(registry, ""), nil)

	_, err := media.Ingest(context.Background(), event.ID, "photo.jpg", strings.NewReader("x"))
	assert.Error(t, err)

	got, err := registry.GetEvent(event.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Uploads)
}

func TestIngestNotifiesAfterCallerCancels(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	registry, _ := newTestRegistry(t)
	event := createEvent(t, registry, "party")
	p, err := registry.CreateParticipant(context.Background(), event.ID, "+15551234567", "s.jpg")
	require.NoError(t, err)

	notifier, err := NewNotifier(testNotifierConfig(), messaging.NewTwilio("AC123", "secret", srv.URL), zerolog.Nop())
	require.NoError(t, err)
	matcher := NewMatcher(registry, newStubProvider(p.ID), notifier)
	media := NewMediaService(registry, newMemoryAssets(), matcher, NewGalleryResolver(registry, ""), nil)

	// the client went away before matching finished
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	upload, err := media.Ingest(ctx, event.ID, "photo.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, upload.MatchedParticipants)
	assert.Equal(t, int32(1), hits.Load())
}
