package services

import (
	"context"
	"fmt"
	"io"

	"event-gallery-backend/internal/models"
	"event-gallery-backend/internal/storage"
	"event-gallery-backend/internal/utils"

	"github.com/rs/zerolog/log"
)

// ConfirmationMessage is returned to an attendee after registering
const ConfirmationMessage = "Perfeito! Cadastro realizado. Você receberá em minutos seu vídeo ou foto por WhatsApp ou SMS."

// RegistrationService signs attendees up for an event
type RegistrationService struct {
	registry *Registry
	assets   storage.AssetStore
	provider FaceMatcher
	matcher  *Matcher
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(registry *Registry, assets storage.AssetStore, provider FaceMatcher, matcher *Matcher) *RegistrationService {
	return &RegistrationService{
		registry: registry,
		assets:   assets,
		provider: provider,
		matcher:  matcher,
	}
}

// Register stores the selfie, creates the participant and looks for
// them in the media already uploaded to the event
func (s *RegistrationService) Register(ctx context.Context, eventID, phone, selfieName string, selfie io.Reader) (models.Participant, error) {
	if _, err := s.registry.GetEvent(eventID); err != nil {
		return models.Participant{}, err
	}
	phone = utils.NormalizePhoneNumber(phone)
	if phone == "" {
		return models.Participant{}, fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	if !utils.IsValidPhoneNumber(phone) {
		return models.Participant{}, fmt.Errorf("%w: invalid phone number", ErrValidation)
	}

	data, err := io.ReadAll(selfie)
	if err != nil {
		return models.Participant{}, fmt.Errorf("%w: failed to read selfie: %v", ErrValidation, err)
	}
	if len(data) == 0 {
		return models.Participant{}, fmt.Errorf("%w: selfie image is required", ErrValidation)
	}

	ref, err := s.assets.Save(ctx, data, "selfie_"+selfieName)
	if err != nil {
		return models.Participant{}, fmt.Errorf("failed to store selfie: %w", err)
	}

	participant, err := s.registry.CreateParticipant(ctx, eventID, phone, ref)
	if err != nil {
		return models.Participant{}, err
	}

	if enroller, ok := s.provider.(FaceEnroller); ok {
		if err := enroller.Enroll(ctx, participant.ID, ref); err != nil {
			log.Warn().
				Err(err).
				Str("participant_id", participant.ID).
				Msg("Failed to enroll participant face")
		}
	}

	event, err := s.registry.GetEvent(eventID)
	if err != nil {
		return models.Participant{}, err
	}
	if err := s.matcher.Rescan(ctx, event, participant.ID); err != nil {
		return models.Participant{}, err
	}

	log.Info().
		Str("event_id", eventID).
		Str("participant_id", participant.ID).
		Msg("Participant registered")

	if fresh, err := s.registry.GetParticipant(participant.ID); err == nil {
		participant = fresh
	}
	return participant, nil
}
