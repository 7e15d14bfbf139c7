package models

import (
	"slices"
	"time"
)

// Event represents an organizer's event that attendees register for
type Event struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phrase         string    `json:"phrase"`
	LogoURL        *string   `json:"logo_url"`
	ExpirationDays int       `json:"expiration_days"`
	CreatedAt      time.Time `json:"created_at"`
	Participants   []string  `json:"participants"`
	Uploads        []string  `json:"uploads"`
}

// Participant represents an attendee registered to a single event
type Participant struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	Phone          string     `json:"phone"`
	SelfieFilename string     `json:"selfie_filename"`
	RegisteredAt   time.Time  `json:"registered_at"`
	GalleryToken   string     `json:"gallery_token"`
	LastAccessAt   *time.Time `json:"last_access_at"`
	MatchedUploads []string   `json:"matched_uploads"`
}

// Upload represents a photo or video captured during an event
type Upload struct {
	ID                  string    `json:"id"`
	EventID             string    `json:"event_id"`
	Filename            string    `json:"filename"`
	UploadedAt          time.Time `json:"uploaded_at"`
	MatchedParticipants []string  `json:"matched_participants"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	e.Participants = cloneIDs(e.Participants)
	e.Uploads = cloneIDs(e.Uploads)
	if e.LogoURL != nil {
		logo := *e.LogoURL
		e.LogoURL = &logo
	}
	return e
}

// Clone returns a deep copy of the participant.
func (p Participant) Clone() Participant {
	p.MatchedUploads = cloneIDs(p.MatchedUploads)
	if p.LastAccessAt != nil {
		at := *p.LastAccessAt
		p.LastAccessAt = &at
	}
	return p
}

// Clone returns a deep copy of the upload.
func (u Upload) Clone() Upload {
	u.MatchedParticipants = cloneIDs(u.MatchedParticipants)
	return u
}

// HasMatch reports whether the upload is already linked to the participant.
func (u Upload) HasMatch(participantID string) bool {
	return slices.Contains(u.MatchedParticipants, participantID)
}

// Always non-nil so empty lists encode as [] rather than null.
func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Media is a single item of a gallery or slideshow
type Media struct {
	UploadID   string    `json:"upload_id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Gallery is the attendee-facing view of matched media
type Gallery struct {
	ParticipantID string    `json:"participant_id"`
	EventID       string    `json:"event_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	Media         []Media   `json:"media"`
}

// Slideshow lists every upload of an event for public display
type Slideshow struct {
	EventID string  `json:"event_id"`
	Media   []Media `json:"media"`
}

// Lead is one participant row of the organizer's lead export
type Lead struct {
	ParticipantID  string    `json:"participant_id"`
	Phone          string    `json:"phone"`
	Selfie         string    `json:"selfie"`
	RegisteredAt   time.Time `json:"registered_at"`
	GalleryToken   string    `json:"gallery_token"`
	MatchedUploads []string  `json:"matched_uploads"`
}

// PublicEvent is the subset of event fields shown before registration
type PublicEvent struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phrase         string  `json:"phrase"`
	LogoURL        *string `json:"logo_url"`
	ExpirationDays int     `json:"expiration_days"`
}
