// Package overlay persists the local favorite fallback: the set of
// bookmark ids the user marked favorite while the remote write path
// was failing. The set is OR'd onto the server flag at projection time
// and is never written back to the record store — a deliberate,
// documented gap: an overlay entry can diverge from the server until
// the next successful favorite toggle clears it.
package overlay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store manages per-owner overlay files under a single data directory.
type Store struct {
	dir string
}

// NewStore creates an overlay store rooted at dir, creating the
// directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create overlay dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load reads the owner's overlay set. A missing file yields an empty
// set; a corrupt file is discarded rather than failing the session.
func (s *Store) Load(ownerID string) (*Set, error) {
	set := &Set{
		path: s.path(ownerID),
		ids:  make(map[string]bool),
	}

	data, err := os.ReadFile(set.path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("failed to read overlay file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		// Corrupt overlay loses local-only favorites, nothing more.
		return set, nil
	}
	for _, id := range ids {
		set.ids[id] = true
	}

	return set, nil
}

func (s *Store) path(ownerID string) string {
	return filepath.Join(s.dir, ownerID+".json")
}

// Set is one owner's persisted favorite id set. Safe for concurrent
// use.
type Set struct {
	mu   sync.RWMutex
	path string
	ids  map[string]bool
}

// Contains reports overlay membership for a bookmark id.
func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids[id]
}

// Add records id and rewrites the file.
func (s *Set) Add(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = true
	return s.saveLocked()
}

// Remove clears id and rewrites the file.
func (s *Set) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return s.saveLocked()
}

// Len returns the number of overlay entries.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// saveLocked writes the full membership list. Sorted for stable files.
func (s *Set) saveLocked() error {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal overlay: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write overlay file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace overlay file: %w", err)
	}

	return nil
}
