//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests that require a real PostgreSQL database
// Run with: TEST_DATABASE_URL=... go test -tags=integration ./internal/repository

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, `DROP TABLE IF EXISTS events, participants, uploads`)
	require.NoError(t, err)

	store := NewPostgresStore(db)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

// changesOf stages every row of snapshot as a write
func changesOf(snapshot Snapshot) Changes {
	changes := NewChanges()
	for _, e := range snapshot.Events {
		changes.PutEvent(e)
	}
	for _, p := range snapshot.Participants {
		changes.PutParticipant(p)
	}
	for _, u := range snapshot.Uploads {
		changes.PutUpload(u)
	}
	return changes
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)

	want := sampleSnapshot()
	require.NoError(t, store.Apply(ctx, NewSnapshot(), changesOf(want)))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, got.Events, "e1")
	assert.Equal(t, want.Events["e1"].Uploads, got.Events["e1"].Uploads)
	assert.True(t, want.Events["e1"].CreatedAt.Equal(got.Events["e1"].CreatedAt))
	assert.Equal(t, want.Participants["p1"].GalleryToken, got.Participants["p1"].GalleryToken)
	require.NotNil(t, got.Participants["p1"].LastAccessAt)
	assert.Equal(t, []string{"p1"}, got.Uploads["u1"].MatchedParticipants)

	deletes := NewChanges()
	deletes.DeleteEvent("e1")
	deletes.DeleteParticipant("p1")
	deletes.DeleteUpload("u1")
	require.NoError(t, store.Apply(ctx, got, deletes))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Events)
	assert.Empty(t, got.Participants)
	assert.Empty(t, got.Uploads)
}

func TestPostgresStoreWritesOnlyChangedRows(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)

	state := sampleSnapshot()
	other := state.Events["e1"]
	other.ID = "e2"
	other.Name = "Winter Fest"
	other.Participants = []string{}
	other.Uploads = []string{}
	state.Events["e2"] = other
	require.NoError(t, store.Apply(ctx, NewSnapshot(), changesOf(state)))

	// rows outside the change set stay as they are even with an empty state
	later := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	participant := state.Participants["p1"]
	participant.LastAccessAt = &later
	changes := NewChanges()
	changes.PutParticipant(participant)
	require.NoError(t, store.Apply(ctx, NewSnapshot(), changes))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, got.Events, "e1")
	require.Contains(t, got.Events, "e2")
	assert.Equal(t, "Winter Fest", got.Events["e2"].Name)
	assert.Equal(t, []string{"p1"}, got.Events["e1"].Participants)
	require.Contains(t, got.Uploads, "u1")
	require.NotNil(t, got.Participants["p1"].LastAccessAt)
	assert.True(t, later.Equal(*got.Participants["p1"].LastAccessAt))
}
