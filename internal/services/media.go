package services

import (
	"context"
	"fmt"
	"io"

	"event-gallery-backend/internal/models"
	"event-gallery-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Publisher pushes live updates to slideshow viewers
type Publisher interface {
	Publish(eventID string, msg WSMessage) error
}

// MediaService ingests media captured during an event
type MediaService struct {
	registry  *Registry
	assets    storage.AssetStore
	matcher   *Matcher
	resolver  *GalleryResolver
	publisher Publisher
}

// NewMediaService creates a new media service. publisher may be nil.
func NewMediaService(
	registry *Registry,
	assets storage.AssetStore,
	matcher *Matcher,
	resolver *GalleryResolver,
	publisher Publisher,
) *MediaService {
	return &MediaService{
		registry:  registry,
		assets:    assets,
		matcher:   matcher,
		resolver:  resolver,
		publisher: publisher,
	}
}

// Ingest stores the file, records the upload, matches it against the
// event's participants and announces it to slideshow viewers
func (s *MediaService) Ingest(ctx context.Context, eventID, name string, r io.Reader) (models.Upload, error) {
	if _, err := s.registry.GetEvent(eventID); err != nil {
		return models.Upload{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return models.Upload{}, fmt.Errorf("%w: failed to read upload: %v", ErrValidation, err)
	}

	ref, err := s.assets.Save(ctx, data, name)
	if err != nil {
		return models.Upload{}, fmt.Errorf("failed to store upload: %w", err)
	}

	upload, err := s.registry.CreateUpload(ctx, eventID, ref)
	if err != nil {
		return models.Upload{}, err
	}

	// Re-read so participants registered after the existence check are candidates.
	event, err := s.registry.GetEvent(eventID)
	if err != nil {
		return models.Upload{}, err
	}
	if err := s.matcher.Match(ctx, upload, event); err != nil {
		return models.Upload{}, err
	}

	if s.publisher != nil {
		msg := WSMessage{Type: "upload_created", EventID: eventID, Data: s.resolver.ToMedia(upload)}
		if err := s.publisher.Publish(eventID, msg); err != nil {
			log.Warn().Err(err).Str("upload_id", upload.ID).Msg("Failed to publish upload")
		}
	}

	if fresh, err := s.registry.GetUpload(upload.ID); err == nil {
		upload = fresh
	}

	log.Info().
		Str("event_id", eventID).
		Str("upload_id", upload.ID).
		Str("filename", upload.Filename).
		Msg("Upload ingested")
	return upload, nil
}

// Retrieve returns the bytes of a stored asset
func (s *MediaService) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	return s.assets.Retrieve(ctx, ref)
}
