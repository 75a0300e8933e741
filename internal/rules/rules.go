// Package rules holds the pure betting arithmetic: validating a single
// player action against the table's current bet level, computing the
// outcome of applying it, and scanning turn order. Nothing here mutates
// state; the engine owns all mutation.
package rules

import "fmt"

// Action is the closed set of things a player (or the engine, for forced
// bets) can do. Raise is the only action that carries an amount: a raise-to
// value, not an increment.
type Action string

const (
	Fold  Action = "fold"
	Check Action = "check"
	Call  Action = "call"
	Raise Action = "raise"
	AllIn Action = "all-in"

	// Forced contributions logged by the engine, never submitted by players.
	PostBlind Action = "post-blind"
	PostAnte  Action = "post-ante"
)

// PlayerAction reports whether a is an action a player may submit.
func (a Action) PlayerAction() bool {
	switch a {
	case Fold, Check, Call, Raise, AllIn:
		return true
	default:
		return false
	}
}

// Actor is the minimal view of a player the betting rules need.
type Actor struct {
	Stack      int
	CurrentBet int
	HasFolded  bool
	IsAllIn    bool
	IsActive   bool
}

// CanAct reports whether the actor can still voluntarily act this round.
func (a Actor) CanAct() bool {
	return a.IsActive && !a.HasFolded && !a.IsAllIn && a.Stack > 0
}

// Outcome describes the chip movement of a validated action.
type Outcome struct {
	NewBet         int
	ChipsCommitted int
	IsAllIn        bool
}

// MinRaise returns the minimum raise-to amount. Before any raise this round
// it is one big blind over the current bet; after a raise it is the current
// bet plus the size of the last raise (no-limit min-raise rule).
func MinRaise(currentBet, lastRaise, bigBlind int) int {
	if lastRaise == 0 {
		return currentBet + bigBlind
	}
	return currentBet + lastRaise
}

// Validate checks a single action against the actor and table state.
// amount is only meaningful for Raise, where it is the raise-to value.
func Validate(a Actor, action Action, amount, currentBet, minRaise int) error {
	if !a.IsActive || a.HasFolded {
		return fmt.Errorf("player cannot act in this hand")
	}
	if a.IsAllIn {
		return fmt.Errorf("player is already all-in")
	}

	switch action {
	case Fold:
		return nil
	case Check:
		if a.CurrentBet != currentBet {
			return fmt.Errorf("cannot check facing a bet of %d", currentBet)
		}
		return nil
	case Call:
		if currentBet <= a.CurrentBet {
			return fmt.Errorf("nothing to call")
		}
		return nil
	case Raise:
		if amount <= currentBet {
			return fmt.Errorf("raise must exceed the current bet of %d", currentBet)
		}
		if amount < minRaise {
			return fmt.Errorf("minimum raise is %d", minRaise)
		}
		if amount-a.CurrentBet > a.Stack {
			return fmt.Errorf("insufficient chips to raise to %d", amount)
		}
		return nil
	case AllIn:
		if a.Stack <= 0 {
			return fmt.Errorf("no chips remaining")
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

// Apply validates the action and computes its outcome. A call that exceeds
// the actor's stack is capped at the stack and becomes an all-in; fold and
// check commit nothing.
func Apply(a Actor, action Action, amount, currentBet, minRaise int) (Outcome, error) {
	if err := Validate(a, action, amount, currentBet, minRaise); err != nil {
		return Outcome{}, err
	}

	switch action {
	case Fold, Check:
		return Outcome{NewBet: a.CurrentBet}, nil
	case Call:
		toCall := currentBet - a.CurrentBet
		chips := toCall
		if chips > a.Stack {
			chips = a.Stack
		}
		return Outcome{
			NewBet:         a.CurrentBet + chips,
			ChipsCommitted: chips,
			IsAllIn:        chips == a.Stack,
		}, nil
	case Raise:
		chips := amount - a.CurrentBet
		return Outcome{
			NewBet:         amount,
			ChipsCommitted: chips,
			IsAllIn:        chips == a.Stack,
		}, nil
	case AllIn:
		return Outcome{
			NewBet:         a.CurrentBet + a.Stack,
			ChipsCommitted: a.Stack,
			IsAllIn:        true,
		}, nil
	default:
		return Outcome{}, fmt.Errorf("unknown action %q", action)
	}
}

// NextEligible scans circularly from the given index for the next actor able
// to act, skipping folded, all-in and felted players. Returns -1 when nobody
// can act, which signals round (or hand) closure upstream.
func NextEligible(actors []Actor, from int) int {
	n := len(actors)
	if n == 0 {
		return -1
	}
	from = ((from % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if actors[idx].CanAct() {
			return idx
		}
	}
	return -1
}
