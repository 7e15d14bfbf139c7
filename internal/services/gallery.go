package services

import (
	"context"
	"net/url"
	"strings"

	"event-gallery-backend/internal/models"
)

// GalleryResolver builds the read projections shown to attendees,
// slideshow screens and organizers
type GalleryResolver struct {
	registry       *Registry
	mediaURLPrefix string
}

// NewGalleryResolver creates a resolver. Media URLs are built as
// mediaURLPrefix + "/" + filename.
func NewGalleryResolver(registry *Registry, mediaURLPrefix string) *GalleryResolver {
	return &GalleryResolver{
		registry:       registry,
		mediaURLPrefix: strings.TrimRight(mediaURLPrefix, "/"),
	}
}

// ResolveGallery returns the participant's matched media in match order
// and records the access
func (g *GalleryResolver) ResolveGallery(ctx context.Context, token string) (models.Gallery, error) {
	participant, err := g.registry.TouchGalleryAccess(ctx, token)
	if err != nil {
		return models.Gallery{}, err
	}

	gallery := models.Gallery{
		ParticipantID: participant.ID,
		EventID:       participant.EventID,
		Media:         g.media(participant.MatchedUploads),
	}
	if event, err := g.registry.GetEvent(participant.EventID); err == nil {
		gallery.ExpiresAt = participant.RegisteredAt.AddDate(0, 0, event.ExpirationDays)
	}
	return gallery, nil
}

// ResolveSlideshow returns every upload of the event in upload order
func (g *GalleryResolver) ResolveSlideshow(eventID string) (models.Slideshow, error) {
	event, err := g.registry.GetEvent(eventID)
	if err != nil {
		return models.Slideshow{}, err
	}
	return models.Slideshow{
		EventID: event.ID,
		Media:   g.media(event.Uploads),
	}, nil
}

// ExportLeads returns one lead per participant in registration order
func (g *GalleryResolver) ExportLeads(eventID string) ([]models.Lead, error) {
	participants, err := g.registry.EventParticipants(eventID)
	if err != nil {
		return nil, err
	}

	leads := make([]models.Lead, 0, len(participants))
	for _, p := range participants {
		leads = append(leads, models.Lead{
			ParticipantID:  p.ID,
			Phone:          p.Phone,
			Selfie:         p.SelfieFilename,
			RegisteredAt:   p.RegisteredAt,
			GalleryToken:   p.GalleryToken,
			MatchedUploads: p.MatchedUploads,
		})
	}
	return leads, nil
}

// ListUploads returns the event's upload records in upload order
func (g *GalleryResolver) ListUploads(eventID string) ([]models.Upload, error) {
	event, err := g.registry.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	return g.registry.ResolveUploads(event.Uploads), nil
}

// PublicEvent returns the fields shown on the registration page
func (g *GalleryResolver) PublicEvent(eventID string) (models.PublicEvent, error) {
	event, err := g.registry.GetEvent(eventID)
	if err != nil {
		return models.PublicEvent{}, err
	}
	return models.PublicEvent{
		ID:             event.ID,
		Name:           event.Name,
		Phrase:         event.Phrase,
		LogoURL:        event.LogoURL,
		ExpirationDays: event.ExpirationDays,
	}, nil
}

// ToMedia converts an upload into its public media entry
func (g *GalleryResolver) ToMedia(upload models.Upload) models.Media {
	return models.Media{
		UploadID:   upload.ID,
		Filename:   upload.Filename,
		URL:        g.mediaURLPrefix + "/" + url.PathEscape(upload.Filename),
		UploadedAt: upload.UploadedAt,
	}
}

func (g *GalleryResolver) media(uploadIDs []string) []models.Media {
	uploads := g.registry.ResolveUploads(uploadIDs)
	media := make([]models.Media, 0, len(uploads))
	for _, u := range uploads {
		media = append(media, g.ToMedia(u))
	}
	return media
}
