package repository

import (
	"context"
	"maps"

	"event-gallery-backend/internal/models"
)

// Store persists the registry state. Apply writes one mutation: state
// is everything as it was before and changes lists the touched rows.
// Stores that keep whole documents write changes.Merge(state); row
// stores write only the changes.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Apply(ctx context.Context, state Snapshot, changes Changes) error
}

// Changes holds the rows written by one mutation, keyed by id.
// A nil value marks a delete.
type Changes struct {
	Events       map[string]*models.Event
	Participants map[string]*models.Participant
	Uploads      map[string]*models.Upload
}

// NewChanges returns an empty change set
func NewChanges() Changes {
	return Changes{
		Events:       make(map[string]*models.Event),
		Participants: make(map[string]*models.Participant),
		Uploads:      make(map[string]*models.Upload),
	}
}

func (c Changes) PutEvent(e models.Event)             { c.Events[e.ID] = &e }
func (c Changes) PutParticipant(p models.Participant) { c.Participants[p.ID] = &p }
func (c Changes) PutUpload(u models.Upload)           { c.Uploads[u.ID] = &u }
func (c Changes) DeleteEvent(id string)               { c.Events[id] = nil }
func (c Changes) DeleteParticipant(id string)         { c.Participants[id] = nil }
func (c Changes) DeleteUpload(id string)              { c.Uploads[id] = nil }

// Empty reports whether nothing was staged
func (c Changes) Empty() bool {
	return len(c.Events) == 0 && len(c.Participants) == 0 && len(c.Uploads) == 0
}

// Merge returns base with the changes applied, leaving base untouched
func (c Changes) Merge(base Snapshot) Snapshot {
	out := Snapshot{
		Events:       maps.Clone(base.Events),
		Participants: maps.Clone(base.Participants),
		Uploads:      maps.Clone(base.Uploads),
	}
	out.normalize()
	ApplyTo(out.Events, c.Events)
	ApplyTo(out.Participants, c.Participants)
	ApplyTo(out.Uploads, c.Uploads)
	return out
}

// ApplyTo writes staged values into dst and removes staged deletes
func ApplyTo[T any](dst map[string]T, staged map[string]*T) {
	for id, v := range staged {
		if v == nil {
			delete(dst, id)
			continue
		}
		dst[id] = *v
	}
}

// Snapshot is the persisted form of every entity, keyed by id
type Snapshot struct {
	Events       map[string]models.Event       `json:"events"`
	Participants map[string]models.Participant `json:"participants"`
	Uploads      map[string]models.Upload      `json:"uploads"`
}

// NewSnapshot returns an empty snapshot with all maps allocated
func NewSnapshot() Snapshot {
	return Snapshot{
		Events:       make(map[string]models.Event),
		Participants: make(map[string]models.Participant),
		Uploads:      make(map[string]models.Upload),
	}
}

// normalize makes sure a decoded snapshot never carries nil maps
func (s *Snapshot) normalize() {
	if s.Events == nil {
		s.Events = make(map[string]models.Event)
	}
	if s.Participants == nil {
		s.Participants = make(map[string]models.Participant)
	}
	if s.Uploads == nil {
		s.Uploads = make(map[string]models.Upload)
	}
}

// Clone returns a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	for id, e := range s.Events {
		out.Events[id] = e.Clone()
	}
	for id, p := range s.Participants {
		out.Participants[id] = p.Clone()
	}
	for id, u := range s.Uploads {
		out.Uploads[id] = u.Clone()
	}
	return out
}
