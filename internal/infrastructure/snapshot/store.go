package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/ports"
)

// FileStore persists the last successfully produced payload as JSON.
// Only fresh runs write it, so a string of bad runs can never erase
// the last good data.
type FileStore struct {
	path string
}

var _ ports.SnapshotStore = (*FileStore)(nil)

// NewFileStore points the store at a snapshot path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the last snapshot; a missing file yields (nil, nil).
func (s *FileStore) Load(_ context.Context) (*domain.Payload, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read snapshot %s", s.path)
	}

	var payload domain.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrapf(err, "parse snapshot %s", s.path)
	}

	return &payload, nil
}

// Save overwrites the snapshot via a temp-file rename, so a killed run
// cannot leave a truncated snapshot behind.
func (s *FileStore) Save(_ context.Context, payload domain.Payload) error {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create snapshot dir %s", dir)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write snapshot %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "replace snapshot %s", s.path)
	}

	return nil
}
