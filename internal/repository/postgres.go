package repository

import (
	"context"
	"fmt"

	"event-gallery-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		phrase          TEXT NOT NULL DEFAULT '',
		logo_url        TEXT,
		expiration_days INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		participants    TEXT[] NOT NULL DEFAULT '{}',
		uploads         TEXT[] NOT NULL DEFAULT '{}'
	);
	CREATE TABLE IF NOT EXISTS participants (
		id              TEXT PRIMARY KEY,
		event_id        TEXT NOT NULL,
		phone           TEXT NOT NULL,
		selfie_filename TEXT NOT NULL,
		registered_at   TIMESTAMPTZ NOT NULL,
		gallery_token   TEXT NOT NULL UNIQUE,
		last_access_at  TIMESTAMPTZ,
		matched_uploads TEXT[] NOT NULL DEFAULT '{}'
	);
	CREATE TABLE IF NOT EXISTS uploads (
		id                   TEXT PRIMARY KEY,
		event_id             TEXT NOT NULL,
		filename             TEXT NOT NULL,
		uploaded_at          TIMESTAMPTZ NOT NULL,
		matched_participants TEXT[] NOT NULL DEFAULT '{}'
	);
`

const (
	upsertEvent = `
		INSERT INTO events (id, name, phrase, logo_url, expiration_days, created_at, participants, uploads)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phrase = EXCLUDED.phrase,
			logo_url = EXCLUDED.logo_url,
			expiration_days = EXCLUDED.expiration_days,
			participants = EXCLUDED.participants,
			uploads = EXCLUDED.uploads
	`
	upsertParticipant = `
		INSERT INTO participants (id, event_id, phone, selfie_filename, registered_at, gallery_token, last_access_at, matched_uploads)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			last_access_at = EXCLUDED.last_access_at,
			matched_uploads = EXCLUDED.matched_uploads
	`
	upsertUpload = `
		INSERT INTO uploads (id, event_id, filename, uploaded_at, matched_participants)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			matched_participants = EXCLUDED.matched_participants
	`
)

// PostgresStore persists registry state in three PostgreSQL tables,
// one row per entity
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they do not exist yet
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load reads every row of the three tables
func (s *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	snapshot := NewSnapshot()

	rows, err := s.db.Query(ctx, `
		SELECT id, name, phrase, logo_url, expiration_days, created_at, participants, uploads
		FROM events
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Event, error) {
		var e models.Event
		err := row.Scan(&e.ID, &e.Name, &e.Phrase, &e.LogoURL, &e.ExpirationDays,
			&e.CreatedAt, &e.Participants, &e.Uploads)
		return e, err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to scan events: %w", err)
	}
	for _, e := range events {
		snapshot.Events[e.ID] = e
	}

	rows, err = s.db.Query(ctx, `
		SELECT id, event_id, phone, selfie_filename, registered_at, gallery_token, last_access_at, matched_uploads
		FROM participants
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query participants: %w", err)
	}
	participants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Participant, error) {
		var p models.Participant
		err := row.Scan(&p.ID, &p.EventID, &p.Phone, &p.SelfieFilename, &p.RegisteredAt,
			&p.GalleryToken, &p.LastAccessAt, &p.MatchedUploads)
		return p, err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to scan participants: %w", err)
	}
	for _, p := range participants {
		snapshot.Participants[p.ID] = p
	}

	rows, err = s.db.Query(ctx, `
		SELECT id, event_id, filename, uploaded_at, matched_participants
		FROM uploads
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query uploads: %w", err)
	}
	uploads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Upload, error) {
		var u models.Upload
		err := row.Scan(&u.ID, &u.EventID, &u.Filename, &u.UploadedAt, &u.MatchedParticipants)
		return u, err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to scan uploads: %w", err)
	}
	for _, u := range uploads {
		snapshot.Uploads[u.ID] = u
	}

	return snapshot, nil
}

// Apply writes only the touched rows, in one transaction. state is not
// needed: rows that were not changed are already in the tables.
func (s *PostgresStore) Apply(ctx context.Context, _ Snapshot, changes Changes) error {
	batch := &pgx.Batch{}
	for id, e := range changes.Events {
		if e == nil {
			batch.Queue(`DELETE FROM events WHERE id = $1`, id)
			continue
		}
		batch.Queue(upsertEvent, e.ID, e.Name, e.Phrase, e.LogoURL, e.ExpirationDays,
			e.CreatedAt.UTC(), nonNil(e.Participants), nonNil(e.Uploads))
	}
	for id, p := range changes.Participants {
		if p == nil {
			batch.Queue(`DELETE FROM participants WHERE id = $1`, id)
			continue
		}
		batch.Queue(upsertParticipant, p.ID, p.EventID, p.Phone, p.SelfieFilename,
			p.RegisteredAt.UTC(), p.GalleryToken, p.LastAccessAt, nonNil(p.MatchedUploads))
	}
	for id, u := range changes.Uploads {
		if u == nil {
			batch.Queue(`DELETE FROM uploads WHERE id = $1`, id)
			continue
		}
		batch.Queue(upsertUpload, u.ID, u.EventID, u.Filename, u.UploadedAt.UTC(),
			nonNil(u.MatchedParticipants))
	}
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write changes: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit changes: %w", err)
	}
	return nil
}

// nonNil keeps NOT NULL array columns happy
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
