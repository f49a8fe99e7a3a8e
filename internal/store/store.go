// Package store keeps named profile snapshots as JSON files in a directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"qpdiff/internal/config"
	"qpdiff/internal/profile"
)

var (
	// ErrProfileNotFound is returned when a snapshot doesn't exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidName is returned for an empty snapshot name.
	ErrInvalidName = errors.New("invalid profile name")
)

// Store manages snapshot persistence.
type Store struct {
	Dir string // Base directory for snapshots
}

// NewStore creates a store with the given directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// DefaultDir returns the default snapshot directory (~/.qpdiff/profiles).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".qpdiff", "profiles")
	}
	return filepath.Join(home, ".qpdiff", "profiles")
}

// ResolveDir returns the snapshot directory from QPDIFF_STORE_DIR or the
// default.
func ResolveDir(environ []string) string {
	if dir := config.ParseEnviron(environ)[config.EnvStoreDir]; dir != "" {
		return dir
	}
	return DefaultDir()
}

// Save stores a snapshot under its name, replacing any previous one.
func (s *Store) Save(snap Snapshot) error {
	if strings.TrimSpace(snap.Name) == "" {
		return ErrInvalidName
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(snap.Name), data, 0o644)
}

// Load retrieves a snapshot by name.
func (s *Store) Load(name string) (Snapshot, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", name, err)
	}

	return snap, nil
}

// Document returns the document of the named snapshot. It satisfies
// [profile.Lookup] so stored profiles can serve as parents.
func (s *Store) Document(name string) (profile.Document, error) {
	snap, err := s.Load(name)
	if err != nil {
		return profile.Document{}, err
	}
	return snap.Document, nil
}

// List returns all stored snapshots as summaries, ordered by name.
func (s *Store) List() ([]SnapshotSummary, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SnapshotSummary{}, nil
		}
		return nil, err
	}

	summaries := []SnapshotSummary{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.Dir, entry.Name()))
		if err != nil {
			continue // Skip unreadable files
		}

		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue // Skip invalid JSON
		}

		summaries = append(summaries, SnapshotSummary{
			Name:        snap.Name,
			Key:         snap.Document.Key,
			Language:    snap.Document.Language,
			Rules:       len(snap.Document.Rules),
			Fingerprint: snap.Fingerprint,
			Timestamp:   snap.Timestamp,
		})
	}

	slices.SortFunc(summaries, func(a, b SnapshotSummary) int {
		return strings.Compare(a.Name, b.Name)
	})
	return summaries, nil
}

// Delete removes a snapshot by name.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return err
	}

	return nil
}

// Exists checks if a snapshot exists.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// path returns the file path for a snapshot name.
func (s *Store) path(name string) string {
	// Sanitize name for filesystem
	safeName := strings.ReplaceAll(name, "/", "_")
	safeName = strings.ReplaceAll(safeName, "\\", "_")
	return filepath.Join(s.Dir, safeName+".json")
}
