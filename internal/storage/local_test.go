package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ref, err := store.Save(ctx, []byte("jpeg"), "my photo.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, "_my_photo.jpg"))

	other, err := store.Save(ctx, []byte("jpeg"), "my photo.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)

	data, err := store.Retrieve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	_, err = os.Stat(filepath.Join(dir, ref))
	assert.NoError(t, err)
}

func TestLocalStoreRetrieveMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Retrieve(context.Background(), "nothing.jpg")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o644))
	store, err := NewLocalStore(filepath.Join(root, "uploads"))
	require.NoError(t, err)

	for _, ref := range []string{"../secret.txt", "..", "", "a/b"} {
		_, err := store.Retrieve(context.Background(), ref)
		assert.ErrorIs(t, err, ErrAssetNotFound, ref)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\camera\IMG 01.JPG`, "IMG_01.JPG"},
		{"", "file"},
		{"..", "file"},
		{"foto ção.png", "foto___o.png"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.in))
		})
	}
}
