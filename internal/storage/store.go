package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store persists rendered PDF artifacts. The render workflow only ever
// needs two operations: create a file from bytes and resolve a name
// back to its path.
type Store interface {
	Create(name string, data []byte) (string, error)
	ResolvePath(name string) string
}

// FileStore keeps artifacts in a single directory on disk
type FileStore struct {
	dir string
}

// NewFileStore creates the output directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Create writes the artifact under the store directory and returns the
// resulting path. The name is reduced to its base so callers cannot
// write outside the store.
func (s *FileStore) Create(name string, data []byte) (string, error) {
	path := s.ResolvePath(name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// ResolvePath maps an artifact name to its path inside the store
func (s *FileStore) ResolvePath(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
