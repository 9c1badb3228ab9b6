// Package checkpoint persists the upstream session's read position so a
// restarted relay resumes without gaps or duplicates.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ozym/slscale/internal/ports"
)

// ErrNotFound is returned by Recover when no statefile exists yet.
var ErrNotFound = errors.New("checkpoint: statefile not found")

// FileStore keeps the session state in a single YAML statefile. Writes
// go through a temporary file and rename so a crash mid-persist never
// leaves a truncated statefile behind.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Recover reads the statefile. A missing file yields ErrNotFound, which
// callers treat as "start from the live position".
func (s *FileStore) Recover() (*ports.SessionState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checkpoint: read %s: %w", s.path, err)
	}

	var state ports.SessionState
	if err := yaml.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", s.path, err)
	}
	return &state, nil
}

// Persist writes the state atomically.
func (s *FileStore) Persist(state *ports.SessionState) error {
	raw, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

var _ ports.CheckpointStore = (*FileStore)(nil)
