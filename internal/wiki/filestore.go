package wiki

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/wikibot/internal/schemas"
)

// FileStore keeps the cache snapshot in a JSON file.
type FileStore struct {
	Path   string
	Pretty bool
}

// NewFileStore creates a store for path.
func NewFileStore(path string, pretty bool) *FileStore {
	return &FileStore{Path: path, Pretty: pretty}
}

// Load reads and validates the snapshot file.
func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if err := schemas.ValidateCacheSnapshot(data); err != nil {
		return nil, fmt.Errorf("cache file %s is invalid: %w", s.Path, err)
	}
	return DecodeSnapshot(data)
}

// Save writes the snapshot to a temporary file and renames it over Path.
func (s *FileStore) Save(_ context.Context, snapshot *Snapshot) error {
	data, err := snapshot.Encode(s.Pretty)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
