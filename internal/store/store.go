// Package store persists engine snapshots so unfinished tables survive a
// process restart. Backends are interchangeable: a local directory of JSON
// files or a Redis keyspace.
package store

import (
	"context"
	"fmt"

	"github.com/feltkit/holdem/internal/engine"
)

// ErrNotFound is returned when no snapshot exists for a game id.
var ErrNotFound = fmt.Errorf("snapshot not found")

// SnapshotStore saves and restores engine snapshots keyed by game id.
type SnapshotStore interface {
	Save(ctx context.Context, gameID string, snap engine.Snapshot) error
	Load(ctx context.Context, gameID string) (engine.Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, gameID string) error
}
