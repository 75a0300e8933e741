package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltkit/holdem/internal/engine"
	"github.com/feltkit/holdem/internal/gameid"
	"github.com/feltkit/holdem/internal/history"
	"github.com/feltkit/holdem/internal/rules"
	"github.com/feltkit/holdem/internal/store"
	"github.com/feltkit/holdem/internal/variant"
)

// Registry owns every live table. Each table is one engine guarded by its
// own mutex; the registry serializes all calls into an engine, persists a
// snapshot after every mutation, and runs the turn timers.
type Registry struct {
	mu         sync.Mutex
	games      map[string]*gameEntry
	byJoinCode map[string]string

	store   store.SnapshotStore
	archive *history.Archive // nil when archiving is disabled
	clock   quartz.Clock
	ids     *gameid.Generator
	logger  *log.Logger

	// onUpdate is invoked after every state change so the transport can
	// push fresh views. Never called with a registry or entry lock held.
	onUpdate func(gameID string)

	engineOpts []engine.Option
}

type gameEntry struct {
	mu  sync.Mutex
	eng *engine.Engine

	turnTimer *quartz.Timer
	turnSeq   int // invalidates stale timer callbacks

	archivedAt time.Time // timestamp of the last hand written to the archive
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithArchive enables the hand-history archive.
func WithArchive(archive *history.Archive) RegistryOption {
	return func(r *Registry) { r.archive = archive }
}

// WithEngineOptions passes options through to every engine the registry
// creates or restores. Used by tests to inject seeded decks.
func WithEngineOptions(opts ...engine.Option) RegistryOption {
	return func(r *Registry) { r.engineOpts = opts }
}

// NewRegistry creates a registry backed by the given snapshot store.
func NewRegistry(snapshots store.SnapshotStore, clock quartz.Clock, logger *log.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		games:      make(map[string]*gameEntry),
		byJoinCode: make(map[string]string),
		store:      snapshots,
		clock:      clock,
		ids:        gameid.NewGenerator(nil),
		logger:     logger.WithPrefix("registry"),
		onUpdate:   func(string) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetUpdateFunc registers the state-change callback. Must be called before
// the registry starts mutating games.
func (r *Registry) SetUpdateFunc(fn func(gameID string)) {
	r.onUpdate = fn
}

// Restore loads every stored snapshot and brings unfinished tables back into
// memory. Corrupt snapshots are logged and skipped, they never block boot.
func (r *Registry) Restore(ctx context.Context) error {
	ids, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	for _, id := range ids {
		snap, err := r.store.Load(ctx, id)
		if err != nil {
			r.logger.Error("Failed to load snapshot", "game", id, "error", err)
			continue
		}
		eng, err := variant.FromSnapshot(snap, r.engineOpts...)
		if err != nil {
			r.logger.Error("Failed to restore game", "game", id, "error", err)
			continue
		}

		entry := &gameEntry{eng: eng}
		state := eng.State()
		if state.LastHandResult != nil {
			entry.archivedAt = state.LastHandResult.Timestamp
		}

		r.mu.Lock()
		r.games[id] = entry
		if state.JoinCode != "" {
			r.byJoinCode[strings.ToLower(state.JoinCode)] = id
		}
		r.mu.Unlock()

		entry.mu.Lock()
		r.armTurnTimer(id, entry)
		entry.mu.Unlock()

		r.logger.Info("Restored game", "game", id, "phase", state.Phase, "players", len(state.Players))
	}
	return nil
}

// CreateGame opens a new table with the caller seated as host.
func (r *Registry) CreateGame(ctx context.Context, v variant.Variant, settings engine.Settings, playerName, avatar string) (gameID, joinCode, playerID string, err error) {
	gameID = r.ids.Generate()
	joinCode = r.ids.JoinCode()
	playerID = r.ids.Generate()

	eng, err := variant.New(v, gameID, joinCode, settings, r.engineOpts...)
	if err != nil {
		return "", "", "", err
	}
	if err := eng.AddPlayer(playerID, playerName, avatar); err != nil {
		return "", "", "", err
	}

	entry := &gameEntry{eng: eng}
	r.mu.Lock()
	r.games[gameID] = entry
	r.byJoinCode[joinCode] = gameID
	r.mu.Unlock()

	if err := r.store.Save(ctx, gameID, eng.Snapshot()); err != nil {
		r.logger.Error("Failed to persist new game", "game", gameID, "error", err)
	}

	r.logger.Info("Created game", "game", gameID, "joinCode", joinCode, "host", playerName)
	return gameID, joinCode, playerID, nil
}

// JoinGame seats a new player at the table identified by join code.
func (r *Registry) JoinGame(ctx context.Context, joinCode, playerName, avatar string) (gameID, playerID string, err error) {
	// Codes are generated lowercase; accept any case from players.
	r.mu.Lock()
	gameID, ok := r.byJoinCode[strings.ToLower(joinCode)]
	r.mu.Unlock()
	if !ok {
		return "", "", fmt.Errorf("no game with join code %s", joinCode)
	}

	playerID = r.ids.Generate()
	err = r.mutate(ctx, gameID, func(eng *engine.Engine) error {
		return eng.AddPlayer(playerID, playerName, avatar)
	})
	if err != nil {
		return "", "", err
	}
	return gameID, playerID, nil
}

// LeaveGame removes a player from a table that has not started.
func (r *Registry) LeaveGame(ctx context.Context, gameID, playerID string) error {
	return r.mutate(ctx, gameID, func(eng *engine.Engine) error {
		return eng.RemovePlayer(playerID)
	})
}

// StartGame deals the first hand. Host only.
func (r *Registry) StartGame(ctx context.Context, gameID, playerID string) error {
	return r.mutate(ctx, gameID, func(eng *engine.Engine) error {
		return eng.StartGame(playerID)
	})
}

// NextHand deals the next hand after one finishes. Host only.
func (r *Registry) NextHand(ctx context.Context, gameID, playerID string) error {
	return r.mutate(ctx, gameID, func(eng *engine.Engine) error {
		return eng.NextHand(playerID)
	})
}

// Action applies a betting decision for the player.
func (r *Registry) Action(ctx context.Context, gameID, playerID string, action rules.Action, amount int) error {
	return r.mutate(ctx, gameID, func(eng *engine.Engine) error {
		return eng.ProcessPlayerAction(playerID, action, amount)
	})
}

// Rebuy adds chips to a player's stack between hands.
func (r *Registry) Rebuy(ctx context.Context, gameID, playerID string, amount int) error {
	return r.mutate(ctx, gameID, func(eng *engine.Engine) error {
		return eng.Rebuy(playerID, amount)
	})
}

// StateFor returns the table state redacted for one player, or the public
// view when playerID is empty.
func (r *Registry) StateFor(gameID, playerID string) (engine.GameState, error) {
	entry, err := r.entry(gameID)
	if err != nil {
		return engine.GameState{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if playerID == "" {
		return entry.eng.PublicState(), nil
	}
	return entry.eng.StateForPlayer(playerID), nil
}

// GameIDs returns the ids of all in-memory tables.
func (r *Registry) GameIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) entry(gameID string) (*gameEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %s not found", gameID)
	}
	return entry, nil
}

// mutate runs fn against the engine under the entry lock, then persists,
// archives finished hands, and rearms the turn timer. The update callback
// fires after the lock is released.
func (r *Registry) mutate(ctx context.Context, gameID string, fn func(*engine.Engine) error) error {
	entry, err := r.entry(gameID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	if err := fn(entry.eng); err != nil {
		entry.mu.Unlock()
		return err
	}
	r.afterMutation(ctx, gameID, entry)
	entry.mu.Unlock()

	r.onUpdate(gameID)
	return nil
}

// afterMutation runs with the entry lock held.
func (r *Registry) afterMutation(ctx context.Context, gameID string, entry *gameEntry) {
	if err := r.store.Save(ctx, gameID, entry.eng.Snapshot()); err != nil {
		r.logger.Error("Failed to persist snapshot", "game", gameID, "error", err)
	}

	state := entry.eng.State()
	if r.archive != nil && state.LastHandResult != nil && state.LastHandResult.Timestamp.After(entry.archivedAt) {
		if err := r.archive.RecordHand(ctx, state); err != nil {
			r.logger.Error("Failed to archive hand", "game", gameID, "error", err)
		} else {
			entry.archivedAt = state.LastHandResult.Timestamp
		}
	}

	r.armTurnTimer(gameID, entry)
}

// armTurnTimer schedules a forced action for the player on the clock. Runs
// with the entry lock held.
func (r *Registry) armTurnTimer(gameID string, entry *gameEntry) {
	if entry.turnTimer != nil {
		entry.turnTimer.Stop()
		entry.turnTimer = nil
	}
	entry.turnSeq++

	state := entry.eng.State()
	if !state.Phase.Betting() || state.ActivePlayerIndex == engine.NoSeat {
		return
	}
	if state.Settings.TurnTimerSeconds <= 0 {
		return
	}

	seq := entry.turnSeq
	playerID := state.Players[state.ActivePlayerIndex].ID
	timeout := time.Duration(state.Settings.TurnTimerSeconds) * time.Second

	entry.turnTimer = r.clock.AfterFunc(timeout, func() {
		r.forceAction(gameID, entry, seq, playerID)
	})
}

// forceAction checks if legal, otherwise folds, on behalf of a player whose
// turn timer expired.
func (r *Registry) forceAction(gameID string, entry *gameEntry, seq int, playerID string) {
	entry.mu.Lock()
	if seq != entry.turnSeq {
		// The player acted before the timer fired.
		entry.mu.Unlock()
		return
	}

	r.logger.Info("Turn timer expired", "game", gameID, "player", playerID)

	err := entry.eng.ProcessPlayerAction(playerID, rules.Check, 0)
	if err != nil {
		err = entry.eng.ProcessPlayerAction(playerID, rules.Fold, 0)
	}
	if err != nil {
		r.logger.Error("Forced action failed", "game", gameID, "player", playerID, "error", err)
		entry.mu.Unlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.afterMutation(ctx, gameID, entry)
	entry.mu.Unlock()

	r.onUpdate(gameID)
}

// Close stops all turn timers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.games {
		entry.mu.Lock()
		if entry.turnTimer != nil {
			entry.turnTimer.Stop()
			entry.turnTimer = nil
		}
		entry.turnSeq++
		entry.mu.Unlock()
	}
}
