package services

import (
	"event-gallery-backend/internal/repository"
)

// change is the set of writes staged by one registry mutation
type change struct {
	repository.Changes
}

func newChange() *change {
	return &change{Changes: repository.NewChanges()}
}

// apply installs the change into state and keeps the token index in step
func (c *change) apply(state *repository.Snapshot, tokens map[string]string) {
	for id, p := range c.Participants {
		if old, ok := state.Participants[id]; ok {
			delete(tokens, old.GalleryToken)
		}
		if p != nil {
			tokens[p.GalleryToken] = id
		}
	}
	repository.ApplyTo(state.Events, c.Events)
	repository.ApplyTo(state.Participants, c.Participants)
	repository.ApplyTo(state.Uploads, c.Uploads)
}
