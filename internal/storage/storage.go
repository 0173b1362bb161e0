// Package storage maps log identifiers to their place on the managed log
// directory. Paths are namespaced by identifier, so concurrent admissions
// never collide on a write target.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

const logExtension = ".ulg"

// Store owns the managed directory holding one file per admitted log.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the managed directory.
func (s *Store) Dir() string { return s.dir }

// LogPath returns the deterministic path for a log identifier.
func (s *Store) LogPath(id string) string {
	return filepath.Join(s.dir, id+logExtension)
}

// Exists reports whether a file already occupies the identifier's path.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.LogPath(id))
	return err == nil
}

// Remove deletes the persisted file for an identifier.
func (s *Store) Remove(id string) error {
	return os.Remove(s.LogPath(id))
}

// TempFile creates a scratch file inside the managed directory, so a later
// rename onto a log path stays on one filesystem.
func (s *Store) TempFile() (*os.File, error) {
	return os.CreateTemp(s.dir, "incoming-*.tmp")
}
