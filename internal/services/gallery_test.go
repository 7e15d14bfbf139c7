package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGallery(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	resolver := NewGalleryResolver(registry, "/api/media/")

	days := 10
	event, err := registry.CreateEvent(ctx, EventInput{Name: "party", ExpirationDays: &days})
	require.NoError(t, err)
	p, err := registry.CreateParticipant(ctx, event.ID, "+1555", "s.jpg")
	require.NoError(t, err)
	u1, err := registry.CreateUpload(ctx, event.ID, "a b.jpg")
	require.NoError(t, err)
	u2, err := registry.CreateUpload(ctx, event.ID, "c.jpg")
	require.NoError(t, err)
	_, err = registry.CreateUpload(ctx, event.ID, "unmatched.jpg")
	require.NoError(t, err)

	// Match order, not upload order.
	_, err = registry.RecordMatch(ctx, u2.ID, p.ID)
	require.NoError(t, err)
	_, err = registry.RecordMatch(ctx, u1.ID, p.ID)
	require.NoError(t, err)

	gallery, err := resolver.ResolveGallery(ctx, p.GalleryToken)
	require.NoError(t, err)
	assert.Equal(t, p.ID, gallery.ParticipantID)
	assert.Equal(t, event.ID, gallery.EventID)
	assert.Equal(t, p.RegisteredAt.AddDate(0, 0, 10), gallery.ExpiresAt)
	require.Len(t, gallery.Media, 2)
	assert.Equal(t, u2.ID, gallery.Media[0].UploadID)
	assert.Equal(t, "/api/media/c.jpg", gallery.Media[0].URL)
	assert.Equal(t, u1.ID, gallery.Media[1].UploadID)
	assert.Equal(t, "/api/media/a%20b.jpg", gallery.Media[1].URL)

	touched, err := registry.GetParticipant(p.ID)
	require.NoError(t, err)
	assert.NotNil(t, touched.LastAccessAt)
}

func TestResolveGalleryUnknownToken(t *testing.T) {
	registry, _ := newTestRegistry(t)
	resolver := NewGalleryResolver(registry, "/api/media")

	_, err := resolver.ResolveGallery(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSlideshow(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	resolver := NewGalleryResolver(registry, "/api/media")
	event := createEvent(t, registry, "party")

	empty, err := resolver.ResolveSlideshow(event.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty.Media)
	assert.Empty(t, empty.Media)

	u1, err := registry.CreateUpload(ctx, event.ID, "a.jpg")
	require.NoError(t, err)
	u2, err := registry.CreateUpload(ctx, event.ID, "b.jpg")
	require.NoError(t, err)

	slideshow, err := resolver.ResolveSlideshow(event.ID)
	require.NoError(t, err)
	require.Len(t, slideshow.Media, 2)
	assert.Equal(t, u1.ID, slideshow.Media[0].UploadID)
	assert.Equal(t, u2.ID, slideshow.Media[1].UploadID)

	_, err = resolver.ResolveSlideshow("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportLeads(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	resolver := NewGalleryResolver(registry, "/api/media")
	event := createEvent(t, registry, "party")

	a, err := registry.CreateParticipant(ctx, event.ID, "+1555", "sa.jpg")
	require.NoError(t, err)
	b, err := registry.CreateParticipant(ctx, event.ID, "+5511", "sb.jpg")
	require.NoError(t, err)
	u, err := registry.CreateUpload(ctx, event.ID, "a.jpg")
	require.NoError(t, err)
	_, err = registry.RecordMatch(ctx, u.ID, b.ID)
	require.NoError(t, err)

	leads, err := resolver.ExportLeads(event.ID)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, a.ID, leads[0].ParticipantID)
	assert.Equal(t, "sa.jpg", leads[0].Selfie)
	assert.Empty(t, leads[0].MatchedUploads)
	assert.Equal(t, b.ID, leads[1].ParticipantID)
	assert.Equal(t, b.GalleryToken, leads[1].GalleryToken)
	assert.Equal(t, []string{u.ID}, leads[1].MatchedUploads)

	_, err = resolver.ExportLeads("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublicEvent(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)
	resolver := NewGalleryResolver(registry, "/api/media")

	logo := "https://cdn.example.com/logo.png"
	event, err := registry.CreateEvent(ctx, EventInput{Name: "party", Phrase: "hi", LogoURL: &logo})
	require.NoError(t, err)

	public, err := resolver.PublicEvent(event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, public.ID)
	assert.Equal(t, "hi", public.Phrase)
	require.NotNil(t, public.LogoURL)
	assert.Equal(t, logo, *public.LogoURL)
	assert.Equal(t, defaultExpirationDays, public.ExpirationDays)
}
