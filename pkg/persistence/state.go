// Package persistence stores element state snapshots on disk so a node
// reboot restores the last known state. Snapshots are versioned JSON
// written with an atomic replace, so a crash mid-write never corrupts
// the previous snapshot.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meshx-protocol/meshx-go/pkg/mesh"
	"github.com/meshx-protocol/meshx-go/pkg/model"
)

// snapshotVersion is the on-disk format version.
const snapshotVersion = 1

// snapshot is the on-disk document.
type snapshot struct {
	Version  int                        `json:"version"`
	NodeName string                     `json:"node_name,omitempty"`
	SavedAt  time.Time                  `json:"saved_at"`
	Elements map[uint8]model.StateCache `json:"elements"`
}

// Store persists element states to a single JSON file.
type Store struct {
	mu   sync.Mutex
	path string
	name string
}

// NewStore creates a store writing to path.
func NewStore(path, nodeName string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("persistence: empty path: %w", mesh.ErrInvalidArgument)
	}
	return &Store{path: path, name: nodeName}, nil
}

// Save writes a snapshot of the element states. The file is written to
// a temporary sibling and renamed over the target.
func (s *Store) Save(states map[uint8]model.StateCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := snapshot{
		Version:  snapshotVersion,
		NodeName: s.name,
		SavedAt:  time.Now().UTC(),
		Elements: states,
	}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persistence: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persistence: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persistence: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file is not an error and returns
// an empty map, so first boot needs no special casing.
func (s *Store) Load() (map[uint8]model.StateCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[uint8]model.StateCache{}, nil
		}
		return nil, fmt.Errorf("persistence: read %s: %w", s.path, err)
	}

	var doc snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("persistence: parse %s: %w", s.path, err)
	}
	if doc.Version != snapshotVersion {
		return nil, fmt.Errorf("persistence: snapshot version %d, want %d: %w",
			doc.Version, snapshotVersion, mesh.ErrNotSupported)
	}
	if doc.Elements == nil {
		doc.Elements = map[uint8]model.StateCache{}
	}
	return doc.Elements, nil
}

// Reset removes the snapshot file, e.g. on node reset.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("persistence: remove %s: %w", s.path, err)
	}
	return nil
}
