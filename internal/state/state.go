// Package state persists the "last processed build" record between runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Record is the single persisted marker: the last commit a run processed
// and its display version. Exactly one Record is live at a time.
type Record struct {
	Commit    string    `json:"commit"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes the record as a flat JSON file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted record. A missing file is not an error: it
// returns (nil, nil) and signals a bootstrap run.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	if rec.Commit == "" {
		return nil, fmt.Errorf("state file %s has no commit", s.path)
	}
	return &rec, nil
}

// Save writes the record atomically: marshal to a temp file in the same
// directory, then rename over the target. A failed run never leaves a
// half-written pointer behind.
func (s *Store) Save(rec Record) error {
	if rec.Commit == "" {
		return fmt.Errorf("refusing to save state without a commit")
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
