// Package engine implements the server-authoritative betting engine for
// community-card poker: one instance owns one table across hands, from
// blind posting through showdown and pot distribution.
//
// The engine is single-threaded and synchronous. Every public operation
// runs to completion and leaves the state either fully updated or, on a
// validation error, completely unchanged. Callers must serialize concurrent
// access per instance; the engine owns no I/O and no timers — a turn
// timeout arrives as an ordinary forced action through ProcessPlayerAction.
package engine

import (
	"fmt"
	"io"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/feltkit/holdem/internal/deck"
	"github.com/feltkit/holdem/internal/randutil"
)

// Engine is the state machine for one table.
type Engine struct {
	state GameState

	// Per-hand internals, not visible through GameState but carried by
	// snapshots so play resumes bit-identically after a restart.
	deck               []deck.Card
	lastRaise          int
	closingActionIndex int
	handStartedAt      time.Time
	handStartStacks    map[string]int

	rng         *rand.Rand
	stackedDeck []deck.Card // test hook: overrides shuffling when set
	logger      *log.Logger
}

// Option configures an Engine during construction.
type Option func(*Engine)

// WithRand sets the shuffle RNG. Defaults to a time-seeded source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the engine's logger. Defaults to a discarding logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithDeck makes every hand deal from the given card order instead of
// shuffling. For deterministic tests only.
func WithDeck(cards []deck.Card) Option {
	return func(e *Engine) { e.stackedDeck = append([]deck.Card(nil), cards...) }
}

// New creates an engine for an empty table.
func New(id, joinCode, variant string, settings Settings, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	now := time.Now().UTC()
	e := &Engine{
		state: GameState{
			ID:                 id,
			JoinCode:           joinCode,
			Variant:            variant,
			Phase:              Waiting,
			Settings:           settings,
			DealerPosition:     NoSeat,
			SmallBlindPosition: NoSeat,
			BigBlindPosition:   NoSeat,
			ActivePlayerIndex:  NoSeat,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		closingActionIndex: NoSeat,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = defaultRNG()
	}
	if e.logger == nil {
		e.logger = discardLogger()
	}
	e.logger = e.logger.With("game", id)

	return e, nil
}

func defaultRNG() *rand.Rand {
	return randutil.New(time.Now().UnixNano())
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

// AddPlayer seats a new player. Only allowed before the game starts; the
// first player seated becomes the host.
func (e *Engine) AddPlayer(playerID, name, avatar string) error {
	if e.state.Phase != Waiting {
		return fmt.Errorf("cannot join: game already started")
	}
	if e.state.playerByID(playerID) != nil {
		return fmt.Errorf("player %s already seated", playerID)
	}
	if len(e.state.Players) >= e.state.Settings.MaxPlayers {
		return fmt.Errorf("game is full (%d players)", e.state.Settings.MaxPlayers)
	}

	stack := e.state.Settings.StartingStack
	e.state.Players = append(e.state.Players, Player{
		ID:       playerID,
		Name:     name,
		Avatar:   avatar,
		Stack:    stack,
		IsActive: stack > 0,
		Position: len(e.state.Players),
	})
	if e.state.HostPlayerID == "" {
		e.state.HostPlayerID = playerID
	}
	e.touch()

	e.logger.Debug("player joined", "player", playerID, "seats", len(e.state.Players))
	return nil
}

// RemovePlayer unseats a player. Only allowed before the game starts. If the
// host leaves, the longest-seated remaining player inherits hosting.
func (e *Engine) RemovePlayer(playerID string) error {
	if e.state.Phase != Waiting {
		return fmt.Errorf("cannot leave: game already started")
	}
	idx := -1
	for i := range e.state.Players {
		if e.state.Players[i].ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("player %s not seated", playerID)
	}

	e.state.Players = append(e.state.Players[:idx], e.state.Players[idx+1:]...)
	for i := range e.state.Players {
		e.state.Players[i].Position = i
	}
	if e.state.HostPlayerID == playerID {
		e.state.HostPlayerID = ""
		if len(e.state.Players) > 0 {
			e.state.HostPlayerID = e.state.Players[0].ID
		}
	}
	e.touch()

	e.logger.Debug("player left", "player", playerID, "seats", len(e.state.Players))
	return nil
}

// StartGame starts the first hand. Host-only once a host exists.
func (e *Engine) StartGame(requesterID string) error {
	if e.state.Phase != Waiting {
		return fmt.Errorf("game already started")
	}
	if err := e.requireHost(requesterID); err != nil {
		return err
	}
	return e.startHand()
}

// NextHand finishes table cleanup for the previous hand and deals the next
// one. Host-only, and only from the finished phase.
func (e *Engine) NextHand(requesterID string) error {
	if e.state.Phase != Finished {
		return fmt.Errorf("cannot deal next hand: current hand not finished")
	}
	if err := e.requireHost(requesterID); err != nil {
		return err
	}
	return e.startHand()
}

// Rebuy adds chips to a player's stack between hands, reactivating them if
// they had busted.
func (e *Engine) Rebuy(playerID string, amount int) error {
	if e.state.Phase != Waiting && e.state.Phase != Finished {
		return fmt.Errorf("cannot rebuy during a hand")
	}
	if amount <= 0 {
		return fmt.Errorf("rebuy amount must be positive")
	}
	p := e.state.playerByID(playerID)
	if p == nil {
		return fmt.Errorf("player %s not seated", playerID)
	}

	p.Stack += amount
	p.IsActive = true
	e.touch()

	e.logger.Debug("rebuy", "player", playerID, "amount", amount, "stack", p.Stack)
	return nil
}

// State returns a defensive copy of the full authoritative state, hole
// cards included. For trusted callers only.
func (e *Engine) State() GameState {
	return e.state.clone()
}

// StateForPlayer returns the state as the given player may see it: every
// other player's hole cards are redacted.
func (e *Engine) StateForPlayer(playerID string) GameState {
	st := e.state.clone()
	for i := range st.Players {
		if st.Players[i].ID != playerID {
			st.Players[i].Cards = nil
		}
	}
	return st
}

// PublicState returns the spectator view with all hole cards redacted.
func (e *Engine) PublicState() GameState {
	st := e.state.clone()
	for i := range st.Players {
		st.Players[i].Cards = nil
	}
	return st
}

func (e *Engine) requireHost(requesterID string) error {
	if e.state.HostPlayerID != "" && requesterID != e.state.HostPlayerID {
		return fmt.Errorf("only the host can do that")
	}
	return nil
}

func (e *Engine) touch() {
	e.state.UpdatedAt = time.Now().UTC()
}
