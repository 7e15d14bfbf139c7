package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"event-gallery-backend/internal/models"
	"event-gallery-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultExpirationDays = 30

// EventInput holds the organizer-supplied fields of a new event
type EventInput struct {
	Name           string  `json:"name"`
	Phrase         string  `json:"phrase"`
	LogoURL        *string `json:"logo_url"`
	ExpirationDays *int    `json:"expiration_days"`
}

// EventUpdate holds the mutable event fields. Nil keeps the current value.
type EventUpdate struct {
	Name           *string `json:"name"`
	Phrase         *string `json:"phrase"`
	LogoURL        *string `json:"logo_url"`
	ExpirationDays *int    `json:"expiration_days"`
}

// Registry owns events, participants, uploads and the match edges
// between them. It is the only component that mutates them; every
// accessor hands out copies.
type Registry struct {
	mu     sync.RWMutex
	store  repository.Store
	state  repository.Snapshot
	tokens map[string]string // gallery token -> participant id

	defaultExpiration int
	now               func() time.Time
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithClock overrides the time source
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithDefaultExpiration sets the gallery validity used when an event
// is created without one
func WithDefaultExpiration(days int) RegistryOption {
	return func(r *Registry) {
		if days > 0 {
			r.defaultExpiration = days
		}
	}
}

// NewRegistry creates an empty registry backed by store. Call Load to
// read previously persisted state.
func NewRegistry(store repository.Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:             store,
		state:             repository.NewSnapshot(),
		tokens:            make(map[string]string),
		defaultExpiration: defaultExpirationDays,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory state with the persisted snapshot.
// Participants and uploads whose event is gone are dropped, and so are
// references to entities missing from the snapshot.
func (r *Registry) Load(ctx context.Context) error {
	snapshot, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	orphans := 0
	for id, p := range snapshot.Participants {
		if _, ok := snapshot.Events[p.EventID]; !ok {
			delete(snapshot.Participants, id)
			orphans++
		}
	}
	for id, u := range snapshot.Uploads {
		if _, ok := snapshot.Events[u.EventID]; !ok {
			delete(snapshot.Uploads, id)
			orphans++
		}
	}
	if orphans > 0 {
		log.Warn().
			Int("dropped", orphans).
			Msg("Dropped participants and uploads of missing events")
	}

	for id, e := range snapshot.Events {
		before := len(e.Participants) + len(e.Uploads)
		e.Participants = slices.DeleteFunc(e.Participants, func(pid string) bool {
			_, ok := snapshot.Participants[pid]
			return !ok
		})
		e.Uploads = slices.DeleteFunc(e.Uploads, func(uid string) bool {
			_, ok := snapshot.Uploads[uid]
			return !ok
		})
		if dropped := before - len(e.Participants) - len(e.Uploads); dropped > 0 {
			log.Warn().
				Str("event_id", id).
				Int("dropped", dropped).
				Msg("Dropped dangling references while loading event")
		}
		snapshot.Events[id] = e
	}

	tokens := make(map[string]string, len(snapshot.Participants))
	for id, p := range snapshot.Participants {
		tokens[p.GalleryToken] = id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = snapshot
	r.tokens = tokens

	log.Info().
		Int("events", len(snapshot.Events)).
		Int("participants", len(snapshot.Participants)).
		Int("uploads", len(snapshot.Uploads)).
		Msg("Registry loaded")
	return nil
}

// CreateEvent validates and stores a new event
func (r *Registry) CreateEvent(ctx context.Context, in EventInput) (models.Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Event{}, fmt.Errorf("%w: event name is required", ErrValidation)
	}
	days := r.defaultExpiration
	if in.ExpirationDays != nil {
		if *in.ExpirationDays <= 0 {
			return models.Event{}, fmt.Errorf("%w: expiration_days must be positive", ErrValidation)
		}
		days = *in.ExpirationDays
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event := models.Event{
		ID:             uuid.New().String(),
		Name:           name,
		Phrase:         strings.TrimSpace(in.Phrase),
		LogoURL:        optional(in.LogoURL),
		ExpirationDays: days,
		CreatedAt:      r.now().UTC(),
		Participants:   []string{},
		Uploads:        []string{},
	}

	c := newChange()
	c.PutEvent(event)
	if err := r.commit(ctx, c); err != nil {
		return models.Event{}, err
	}
	return event.Clone(), nil
}

// GetEvent returns the event with the given id
func (r *Registry) GetEvent(id string) (models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.state.Events[id]
	if !ok {
		return models.Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

// ListEvents returns all events ordered by creation time, then id
func (r *Registry) ListEvents() []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]models.Event, 0, len(r.state.Events))
	for _, e := range r.state.Events {
		events = append(events, e.Clone())
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

// UpdateEvent applies the non-nil fields of upd
func (r *Registry) UpdateEvent(ctx context.Context, id string, upd EventUpdate) (models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.state.Events[id]
	if !ok {
		return models.Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	event := current.Clone()

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return models.Event{}, fmt.Errorf("%w: event name is required", ErrValidation)
		}
		event.Name = name
	}
	if upd.Phrase != nil {
		event.Phrase = strings.TrimSpace(*upd.Phrase)
	}
	if upd.LogoURL != nil {
		event.LogoURL = optional(upd.LogoURL)
	}
	if upd.ExpirationDays != nil {
		if *upd.ExpirationDays <= 0 {
			return models.Event{}, fmt.Errorf("%w: expiration_days must be positive", ErrValidation)
		}
		event.ExpirationDays = *upd.ExpirationDays
	}

	c := newChange()
	c.PutEvent(event)
	if err := r.commit(ctx, c); err != nil {
		return models.Event{}, err
	}
	return event.Clone(), nil
}

// DeleteEvent removes the event together with every participant and
// upload it owns
func (r *Registry) DeleteEvent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.Events[id]; !ok {
		return fmt.Errorf("%w: event %s", ErrNotFound, id)
	}

	c := newChange()
	c.DeleteEvent(id)
	for pid, p := range r.state.Participants {
		if p.EventID == id {
			c.DeleteParticipant(pid)
		}
	}
	for uid, u := range r.state.Uploads {
		if u.EventID == id {
			c.DeleteUpload(uid)
		}
	}
	return r.commit(ctx, c)
}

// CreateParticipant registers an attendee and issues a gallery token
func (r *Registry) CreateParticipant(ctx context.Context, eventID, phone, selfieFilename string) (models.Participant, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return models.Participant{}, fmt.Errorf("%w: phone number is required", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.state.Events[eventID]
	if !ok {
		return models.Participant{}, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}

	participant := models.Participant{
		ID:             uuid.New().String(),
		EventID:        eventID,
		Phone:          phone,
		SelfieFilename: selfieFilename,
		RegisteredAt:   r.now().UTC(),
		GalleryToken:   r.newGalleryToken(),
		MatchedUploads: []string{},
	}
	event := current.Clone()
	event.Participants = append(event.Participants, participant.ID)

	c := newChange()
	c.PutEvent(event)
	c.PutParticipant(participant)
	if err := r.commit(ctx, c); err != nil {
		return models.Participant{}, err
	}
	return participant.Clone(), nil
}

// CreateUpload records a stored media asset against an event
func (r *Registry) CreateUpload(ctx context.Context, eventID, filename string) (models.Upload, error) {
	if strings.TrimSpace(filename) == "" {
		return models.Upload{}, fmt.Errorf("%w: filename is required", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.state.Events[eventID]
	if !ok {
		return models.Upload{}, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}

	upload := models.Upload{
		ID:                  uuid.New().String(),
		EventID:             eventID,
		Filename:            filename,
		UploadedAt:          r.now().UTC(),
		MatchedParticipants: []string{},
	}
	event := current.Clone()
	event.Uploads = append(event.Uploads, upload.ID)

	c := newChange()
	c.PutEvent(event)
	c.PutUpload(upload)
	if err := r.commit(ctx, c); err != nil {
		return models.Upload{}, err
	}
	return upload.Clone(), nil
}

// RecordMatch links an upload and a participant in both directions.
// It reports false when the edge already existed, in which case
// nothing is written.
func (r *Registry) RecordMatch(ctx context.Context, uploadID, participantID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	currentUpload, ok := r.state.Uploads[uploadID]
	if !ok {
		return false, fmt.Errorf("%w: upload %s", ErrNotFound, uploadID)
	}
	currentParticipant, ok := r.state.Participants[participantID]
	if !ok {
		return false, fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}
	if currentUpload.EventID != currentParticipant.EventID {
		return false, fmt.Errorf("%w: upload %s and participant %s belong to different events",
			ErrValidation, uploadID, participantID)
	}

	hasForward := currentUpload.HasMatch(participantID)
	hasBackward := slices.Contains(currentParticipant.MatchedUploads, uploadID)
	if hasForward && hasBackward {
		return false, nil
	}

	c := newChange()
	if !hasForward {
		upload := currentUpload.Clone()
		upload.MatchedParticipants = append(upload.MatchedParticipants, participantID)
		c.PutUpload(upload)
	}
	if !hasBackward {
		participant := currentParticipant.Clone()
		participant.MatchedUploads = append(participant.MatchedUploads, uploadID)
		c.PutParticipant(participant)
	}
	if err := r.commit(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

// FindParticipantByGalleryToken resolves a gallery token
func (r *Registry) FindParticipantByGalleryToken(token string) (models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participantByToken(token)
	if !ok {
		return models.Participant{}, fmt.Errorf("%w: gallery", ErrNotFound)
	}
	return p.Clone(), nil
}

// TouchGalleryAccess resolves a gallery token and stamps last_access_at
func (r *Registry) TouchGalleryAccess(ctx context.Context, token string) (models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.participantByToken(token)
	if !ok {
		return models.Participant{}, fmt.Errorf("%w: gallery", ErrNotFound)
	}
	participant := current.Clone()
	now := r.now().UTC()
	participant.LastAccessAt = &now

	c := newChange()
	c.PutParticipant(participant)
	if err := r.commit(ctx, c); err != nil {
		return models.Participant{}, err
	}
	return participant.Clone(), nil
}

// GetParticipant returns the participant with the given id
func (r *Registry) GetParticipant(id string) (models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.state.Participants[id]
	if !ok {
		return models.Participant{}, fmt.Errorf("%w: participant %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

// GetUpload returns the upload with the given id
func (r *Registry) GetUpload(id string) (models.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.state.Uploads[id]
	if !ok {
		return models.Upload{}, fmt.Errorf("%w: upload %s", ErrNotFound, id)
	}
	return u.Clone(), nil
}

// ResolveUploads dereferences ids in order, skipping unknown ones
func (r *Registry) ResolveUploads(ids []string) []models.Upload {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uploads := make([]models.Upload, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.state.Uploads[id]; ok {
			uploads = append(uploads, u.Clone())
		}
	}
	return uploads
}

// EventParticipants returns the event's participants in registration order
func (r *Registry) EventParticipants(eventID string) ([]models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.state.Events[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	participants := make([]models.Participant, 0, len(e.Participants))
	for _, id := range e.Participants {
		if p, ok := r.state.Participants[id]; ok {
			participants = append(participants, p.Clone())
		}
	}
	return participants, nil
}

func (r *Registry) participantByToken(token string) (models.Participant, bool) {
	id, ok := r.tokens[token]
	if !ok {
		return models.Participant{}, false
	}
	p, ok := r.state.Participants[id]
	return p, ok
}

// newGalleryToken must be called with the write lock held
func (r *Registry) newGalleryToken() string {
	for {
		token := strings.ReplaceAll(uuid.New().String(), "-", "")
		if _, taken := r.tokens[token]; !taken {
			return token
		}
	}
}

// commit persists c and only then installs it in memory. Must be
// called with the write lock held.
func (r *Registry) commit(ctx context.Context, c *change) error {
	if c.Empty() {
		return nil
	}
	if err := r.store.Apply(ctx, r.state, c.Changes); err != nil {
		log.Error().Err(err).Msg("Failed to persist registry state")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	c.apply(&r.state, r.tokens)
	return nil
}

// optional trims s and turns an empty value into nil
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
