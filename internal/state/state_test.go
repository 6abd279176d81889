package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsBootstrap(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.json"))

	rec, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, rec, "missing state file signals bootstrap, not an error")
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.json"))

	want := Record{
		Commit:    "a1b2c3d4e5f60000000000000000000000000000",
		Version:   "1.95.0-insider",
		UpdatedAt: time.Date(2024, 10, 4, 6, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Commit, got.Commit)
	assert.Equal(t, want.Version, got.Version)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestSaveCreatesParentDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "dir", "state.json"))

	err := s.Save(Record{Commit: "abc123", Version: "1.95.0-insider", UpdatedAt: time.Now()})
	require.NoError(t, err)

	_, statErr := os.Stat(s.Path())
	assert.NoError(t, statErr)
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "state.json"))

	require.NoError(t, s.Save(Record{Commit: "first", Version: "1.94.0-insider", UpdatedAt: time.Now()}))
	require.NoError(t, s.Save(Record{Commit: "second", Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	// No temp files left behind after overwrites.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", got.Commit)
}

func TestSaveRejectsEmptyCommit(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state.json"))
	assert.Error(t, s.Save(Record{Version: "1.95.0-insider"}))
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestLoadRejectsEmptyCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1.95.0-insider"}`), 0644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}
