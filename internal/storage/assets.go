package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrAssetNotFound is returned when a storage reference resolves to nothing
var ErrAssetNotFound = errors.New("asset not found")

// AssetStore keeps selfies and event media. References returned by
// Save are flat names safe to embed in URLs.
type AssetStore interface {
	Save(ctx context.Context, data []byte, suggestedName string) (string, error)
	Retrieve(ctx context.Context, ref string) ([]byte, error)
}

// newReference builds a unique reference that keeps the original name
// readable: <32 hex chars>_<sanitized base name>
func newReference(suggestedName string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return id + "_" + sanitizeName(suggestedName)
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

// validReference rejects anything that could escape the store's namespace
func validReference(ref string) bool {
	return ref != "" && ref == sanitizeName(ref)
}
