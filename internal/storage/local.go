package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps assets as files in one directory
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes data under a fresh reference
func (s *LocalStore) Save(ctx context.Context, data []byte, suggestedName string) (string, error) {
	ref := newReference(suggestedName)
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	return ref, nil
}

// Retrieve reads the asset behind ref
func (s *LocalStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	if !validReference(ref) {
		return nil, ErrAssetNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}
