package services

import (
	"context"
	"errors"
	"fmt"

	"event-gallery-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// NotificationGateway is told about every newly created match edge
type NotificationGateway interface {
	Notify(ctx context.Context, participant models.Participant, event models.Event, upload models.Upload)
}

// Matcher links uploads to the participants that appear in them
type Matcher struct {
	registry *Registry
	provider FaceMatcher
	gateway  NotificationGateway
}

// NewMatcher creates a new matcher
func NewMatcher(registry *Registry, provider FaceMatcher, gateway NotificationGateway) *Matcher {
	return &Matcher{
		registry: registry,
		provider: provider,
		gateway:  gateway,
	}
}

// Match asks the provider which of the event's participants appear in
// upload and records the new edges. Calling it again for the same
// upload neither duplicates edges nor notifies twice.
func (m *Matcher) Match(ctx context.Context, upload models.Upload, event models.Event) error {
	if upload.EventID != event.ID {
		return fmt.Errorf("%w: upload %s does not belong to event %s", ErrValidation, upload.ID, event.ID)
	}
	return m.match(ctx, upload, event, event.Participants)
}

// Rescan looks for a newly registered participant in every existing
// upload of the event. Only that participant is offered as a
// candidate; everyone else was already evaluated for those uploads.
func (m *Matcher) Rescan(ctx context.Context, event models.Event, participantID string) error {
	for _, upload := range m.registry.ResolveUploads(event.Uploads) {
		if upload.HasMatch(participantID) {
			continue
		}
		if err := m.match(ctx, upload, event, []string{participantID}); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) match(ctx context.Context, upload models.Upload, event models.Event, candidates []string) error {
	if len(candidates) == 0 {
		return nil
	}

	found, err := m.provider.FindMatches(ctx, upload.Filename, candidates)
	if err != nil {
		log.Warn().
			Err(err).
			Str("upload_id", upload.ID).
			Str("event_id", event.ID).
			Msg("Face matching failed")
		return nil
	}

	var created []string
	var persistErr error
	for _, participantID := range filterCandidates(found, candidates) {
		isNew, err := m.registry.RecordMatch(ctx, upload.ID, participantID)
		if err != nil {
			if errors.Is(err, ErrPersistence) {
				persistErr = err
				break
			}
			log.Warn().
				Err(err).
				Str("upload_id", upload.ID).
				Str("participant_id", participantID).
				Msg("Skipping match")
			continue
		}
		if isNew {
			created = append(created, participantID)
		}
	}

	if len(created) > 0 {
		if fresh, err := m.registry.GetUpload(upload.ID); err == nil {
			upload = fresh
		}
		log.Info().
			Str("upload_id", upload.ID).
			Int("matches", len(created)).
			Msg("Upload matched")
	}

	// Edges committed before a persistence failure still get notified.
	// A committed edge is never reported as new again, so the send must
	// outlive the caller's cancellation.
	notifyCtx := context.WithoutCancel(ctx)
	for _, participantID := range created {
		participant, err := m.registry.GetParticipant(participantID)
		if err != nil {
			continue
		}
		m.gateway.Notify(notifyCtx, participant, event, upload)
	}
	return persistErr
}

// filterCandidates keeps provider order while dropping unknown ids and
// duplicates
func filterCandidates(found, candidates []string) []string {
	allowed := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		allowed[id] = true
	}
	out := make([]string, 0, len(found))
	for _, id := range found {
		if allowed[id] {
			out = append(out, id)
			allowed[id] = false
		}
	}
	return out
}
