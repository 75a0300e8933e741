package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/feltkit/holdem/internal/engine"
	"github.com/feltkit/holdem/internal/fileutil"
)

// FileStore keeps one JSON snapshot file per game in a directory. Writes go
// through an atomic rename so a crash mid-write never corrupts a table.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(gameID string) string {
	return filepath.Join(s.dir, gameID+".json")
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(_ context.Context, gameID string, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", gameID, err)
	}
	if err := fileutil.WriteFileAtomic(s.path(gameID), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", gameID, err)
	}
	return nil
}

// Load reads and decodes one snapshot.
func (s *FileStore) Load(_ context.Context, gameID string) (engine.Snapshot, error) {
	data, err := os.ReadFile(s.path(gameID))
	if os.IsNotExist(err) {
		return engine.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("read snapshot %s: %w", gameID, err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", gameID, err)
	}
	return snap, nil
}

// List returns the game ids with stored snapshots.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// Delete removes a snapshot; deleting a missing snapshot is not an error.
func (s *FileStore) Delete(_ context.Context, gameID string) error {
	if err := os.Remove(s.path(gameID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot %s: %w", gameID, err)
	}
	return nil
}
