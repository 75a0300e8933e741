package engine

import (
	"fmt"
	"time"

	"github.com/feltkit/holdem/internal/deck"
)

// Snapshot is the crash-safe serialized form of an engine: plain data that
// round-trips through JSON. Restoring a snapshot reproduces bit-identical
// subsequent behavior — the same remaining deck order, the same next card.
type Snapshot struct {
	State              GameState      `json:"state"`
	Deck               []deck.Card    `json:"deck"`
	LastRaise          int            `json:"lastRaise"`
	ClosingActionIndex int            `json:"closingActionIndex"`
	HandStartedAt      time.Time      `json:"handStartedAt"`
	HandStartStacks    map[string]int `json:"handStartStacksByPlayerId"`
}

// Snapshot captures the full internal state, including the exact remaining
// deck order and the betting-closure bookkeeping.
func (e *Engine) Snapshot() Snapshot {
	stacks := make(map[string]int, len(e.handStartStacks))
	for id, stack := range e.handStartStacks {
		stacks[id] = stack
	}
	return Snapshot{
		State:              e.state.clone(),
		Deck:               append([]deck.Card(nil), e.deck...),
		LastRaise:          e.lastRaise,
		ClosingActionIndex: e.closingActionIndex,
		HandStartedAt:      e.handStartedAt,
		HandStartStacks:    stacks,
	}
}

// FromSnapshot reconstructs an engine from a snapshot. Malformed snapshots
// fail loudly: silently restoring a corrupted table would break chip
// accounting, which is non-negotiable.
func FromSnapshot(snap Snapshot, opts ...Option) (*Engine, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	e := &Engine{
		state:              snap.State.clone(),
		deck:               append([]deck.Card(nil), snap.Deck...),
		lastRaise:          snap.LastRaise,
		closingActionIndex: snap.ClosingActionIndex,
		handStartedAt:      snap.HandStartedAt,
		handStartStacks:    make(map[string]int, len(snap.HandStartStacks)),
	}
	for id, stack := range snap.HandStartStacks {
		e.handStartStacks[id] = stack
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
	e.logger = e.logger.With("game", e.state.ID)

	return e, nil
}

func validateSnapshot(snap Snapshot) error {
	st := snap.State
	if st.ID == "" {
		return fmt.Errorf("missing game id")
	}
	if !st.Phase.Valid() {
		return fmt.Errorf("unknown phase %q", st.Phase)
	}
	if err := st.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if st.Pot < 0 {
		return fmt.Errorf("negative pot %d", st.Pot)
	}

	seats := len(st.Players)
	for _, seat := range []struct {
		name string
		idx  int
	}{
		{"dealerPosition", st.DealerPosition},
		{"smallBlindPosition", st.SmallBlindPosition},
		{"bigBlindPosition", st.BigBlindPosition},
		{"activePlayerIndex", st.ActivePlayerIndex},
	} {
		if seat.idx != NoSeat && (seat.idx < 0 || seat.idx >= seats) {
			return fmt.Errorf("%s %d out of range for %d seats", seat.name, seat.idx, seats)
		}
	}
	if snap.ClosingActionIndex != NoSeat && (snap.ClosingActionIndex < 0 || snap.ClosingActionIndex >= seats) {
		return fmt.Errorf("closingActionIndex %d out of range for %d seats", snap.ClosingActionIndex, seats)
	}
	if snap.LastRaise < 0 {
		return fmt.Errorf("negative lastRaise %d", snap.LastRaise)
	}

	ids := make(map[string]bool, seats)
	for i, p := range st.Players {
		if p.ID == "" {
			return fmt.Errorf("seat %d: missing player id", i)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate player id %s", p.ID)
		}
		ids[p.ID] = true
		if p.Stack < 0 {
			return fmt.Errorf("player %s: negative stack %d", p.ID, p.Stack)
		}
		if p.CurrentBet < 0 {
			return fmt.Errorf("player %s: negative bet %d", p.ID, p.CurrentBet)
		}
		if n := len(p.Cards); n != 0 && n != 2 {
			return fmt.Errorf("player %s: %d hole cards", p.ID, n)
		}
	}

	if len(st.CommunityCards) > 5 {
		return fmt.Errorf("%d community cards", len(st.CommunityCards))
	}
	if len(snap.Deck) > deck.Size {
		return fmt.Errorf("deck holds %d cards", len(snap.Deck))
	}

	// Every card in play must be real and appear exactly once across the
	// deck, the board and all hole cards.
	seen := make(map[deck.Card]bool, deck.Size)
	checkCards := func(where string, cards []deck.Card) error {
		for _, c := range cards {
			if !c.Valid() {
				return fmt.Errorf("%s: invalid card %+v", where, c)
			}
			if seen[c] {
				return fmt.Errorf("%s: duplicate card %s", where, c)
			}
			seen[c] = true
		}
		return nil
	}
	if err := checkCards("deck", snap.Deck); err != nil {
		return err
	}
	if err := checkCards("board", st.CommunityCards); err != nil {
		return err
	}
	for _, p := range st.Players {
		if err := checkCards("player "+p.ID, p.Cards); err != nil {
			return err
		}
	}

	for id := range snap.HandStartStacks {
		if !ids[id] {
			return fmt.Errorf("hand-start stack for unknown player %s", id)
		}
	}

	return nil
}
