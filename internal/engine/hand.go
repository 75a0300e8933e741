package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/feltkit/holdem/internal/deck"
	"github.com/feltkit/holdem/internal/evaluator"
	"github.com/feltkit/holdem/internal/rules"
)

// startHand resets per-hand state, rotates the button, posts forced bets and
// deals a fresh hand. Shared by StartGame and NextHand.
func (e *Engine) startHand() error {
	withChips := 0
	for i := range e.state.Players {
		if e.state.Players[i].Stack > 0 {
			withChips++
		}
	}
	if withChips < 2 {
		return fmt.Errorf("need at least 2 players with chips, have %d", withChips)
	}

	// Reset per-hand fields. History is per-hand: the previous hand's trail
	// has already been handed to external collaborators via LastHandResult
	// and state broadcasts.
	e.state.CommunityCards = nil
	e.state.Pot = 0
	e.state.CurrentBet = 0
	e.state.History = nil
	e.lastRaise = 0
	e.closingActionIndex = NoSeat

	for i := range e.state.Players {
		p := &e.state.Players[i]
		p.CurrentBet = 0
		p.HasFolded = false
		p.IsAllIn = false
		p.Cards = nil
		p.IsActive = p.Stack > 0
	}

	// Rotate the button to the next seat with chips. Heads-up the button
	// posts the small blind and acts first pre-flop.
	e.state.DealerPosition = e.nextSeatWithChips(e.state.DealerPosition)
	if withChips == 2 {
		e.state.SmallBlindPosition = e.state.DealerPosition
		e.state.BigBlindPosition = e.nextSeatWithChips(e.state.DealerPosition)
	} else {
		e.state.SmallBlindPosition = e.nextSeatWithChips(e.state.DealerPosition)
		e.state.BigBlindPosition = e.nextSeatWithChips(e.state.SmallBlindPosition)
	}

	// Pre-hand stacks feed per-hand stats (net won, effective stacks) for
	// the external stats collaborator.
	e.handStartedAt = time.Now().UTC()
	e.handStartStacks = make(map[string]int, withChips)
	for i := range e.state.Players {
		if e.state.Players[i].IsActive {
			e.handStartStacks[e.state.Players[i].ID] = e.state.Players[i].Stack
		}
	}

	if e.stackedDeck != nil {
		e.deck = append([]deck.Card(nil), e.stackedDeck...)
	} else {
		e.deck = deck.Shuffle(deck.New(), e.rng)
	}

	e.state.Phase = PreFlop
	e.postAntes()
	e.postBlinds()

	// Two hole cards to every player dealt in, even those the forced bets
	// already put all-in.
	for i := range e.state.Players {
		p := &e.state.Players[i]
		if !p.IsActive {
			continue
		}
		cards, rest, err := deck.DealN(e.deck, 2)
		if err != nil {
			return fmt.Errorf("deal hole cards: %w", err)
		}
		p.Cards = cards
		e.deck = rest
	}

	first := rules.NextEligible(e.state.actors(), e.state.BigBlindPosition+1)
	e.state.ActivePlayerIndex = first
	e.closingActionIndex = first
	e.touch()

	e.logger.Debug("hand started",
		"players", withChips,
		"dealer", e.state.DealerPosition,
		"pot", e.state.Pot)

	if e.countCanAct() < 2 {
		return e.advancePhase()
	}
	return nil
}

// postAntes assesses the configured ante: flat per dealt-in player, or the
// whole amount charged to the big blind. Antes go straight to the pot and do
// not count toward the round's bet level.
func (e *Engine) postAntes() {
	ante := e.state.Settings.Ante
	switch ante.Type {
	case AntePerPlayer:
		for i := range e.state.Players {
			p := &e.state.Players[i]
			if !p.IsActive {
				continue
			}
			e.postForced(i, rules.PostAnte, min(ante.Amount, p.Stack), false)
		}
	case AnteBigBlind:
		bb := &e.state.Players[e.state.BigBlindPosition]
		e.postForced(e.state.BigBlindPosition, rules.PostAnte, min(ante.Amount, bb.Stack), false)
	}
}

// postBlinds posts the small and big blind, each capped at the poster's
// stack. The table bet level ends at the full big blind even when the big
// blind seat could only post short.
func (e *Engine) postBlinds() {
	s := e.state.Settings

	sb := &e.state.Players[e.state.SmallBlindPosition]
	e.postForced(e.state.SmallBlindPosition, rules.PostBlind, min(s.SmallBlind, sb.Stack), true)
	e.state.CurrentBet = s.SmallBlind

	bb := &e.state.Players[e.state.BigBlindPosition]
	e.postForced(e.state.BigBlindPosition, rules.PostBlind, min(s.BigBlind, bb.Stack), true)
	e.state.CurrentBet = s.BigBlind
}

// postForced moves a forced contribution from a player's stack to the pot
// and logs it. Blind posts count toward the player's round bet; antes do not.
func (e *Engine) postForced(seat int, kind rules.Action, amount int, towardBet bool) {
	p := &e.state.Players[seat]
	p.Stack -= amount
	e.state.Pot += amount
	if towardBet {
		p.CurrentBet += amount
	}
	if p.Stack == 0 {
		p.IsAllIn = true
	}

	e.appendHistory(GameAction{
		PlayerID:        p.ID,
		Action:          kind,
		Amount:          amount,
		Phase:           e.state.Phase,
		BetTo:           p.CurrentBet,
		CurrentBetAfter: e.state.CurrentBet,
	})
}

// ProcessPlayerAction validates and applies one action by the acting player.
// On any validation error the state is completely unchanged.
func (e *Engine) ProcessPlayerAction(playerID string, action rules.Action, amount int) error {
	if !action.PlayerAction() {
		return fmt.Errorf("unknown action %q", action)
	}
	if !e.state.Phase.Betting() {
		return fmt.Errorf("no betting round in progress")
	}
	idx := e.state.ActivePlayerIndex
	if idx == NoSeat || e.state.Players[idx].ID != playerID {
		return fmt.Errorf("not your turn")
	}

	p := &e.state.Players[idx]
	minRaise := rules.MinRaise(e.state.CurrentBet, e.lastRaise, e.state.Settings.BigBlind)
	outcome, err := rules.Apply(p.actor(), action, amount, e.state.CurrentBet, minRaise)
	if err != nil {
		return err
	}

	p.Stack -= outcome.ChipsCommitted
	e.state.Pot += outcome.ChipsCommitted
	p.CurrentBet = outcome.NewBet
	if outcome.IsAllIn {
		p.IsAllIn = true
	}
	if action == rules.Fold {
		p.HasFolded = true
	}

	// Any action that pushes the bet level up is a raise for min-raise
	// accounting, including an all-in shove, and restarts the closing scan
	// at the raiser.
	if outcome.NewBet > e.state.CurrentBet {
		e.lastRaise = outcome.NewBet - e.state.CurrentBet
		e.state.CurrentBet = outcome.NewBet
		e.closingActionIndex = idx
	}

	e.appendHistory(GameAction{
		PlayerID:        playerID,
		Action:          action,
		Amount:          outcome.ChipsCommitted,
		Phase:           e.state.Phase,
		BetTo:           outcome.NewBet,
		CurrentBetAfter: e.state.CurrentBet,
	})
	e.touch()

	e.logger.Debug("action",
		"player", playerID,
		"action", action,
		"amount", outcome.ChipsCommitted,
		"pot", e.state.Pot)

	// Everyone else folded: the hand ends immediately by fold-win.
	contenders := e.contenders()
	if len(contenders) == 1 {
		return e.finishHand("fold", contenders)
	}

	// The closing seat cannot be a player who can no longer act; slide it
	// forward so the round still closes when action returns past them.
	actors := e.state.actors()
	if e.closingActionIndex != NoSeat && !actors[e.closingActionIndex].CanAct() {
		e.closingActionIndex = rules.NextEligible(actors, e.closingActionIndex+1)
	}

	next := rules.NextEligible(actors, idx+1)
	if next == NoSeat || (e.allBetsMatched() && next == e.closingActionIndex) {
		return e.advancePhase()
	}

	e.state.ActivePlayerIndex = next
	return nil
}

// advancePhase closes the current betting round: collects the next street
// (or runs the showdown), and either hands action to the first eligible seat
// or fast-forwards when no further betting is possible.
func (e *Engine) advancePhase() error {
	for i := range e.state.Players {
		e.state.Players[i].CurrentBet = 0
	}
	e.state.CurrentBet = 0
	e.lastRaise = 0

	var dealCount int
	switch e.state.Phase {
	case PreFlop:
		e.state.Phase = Flop
		dealCount = 3
	case Flop:
		e.state.Phase = Turn
		dealCount = 1
	case Turn:
		e.state.Phase = River
		dealCount = 1
	case River:
		e.state.Phase = Showdown
		return e.finishHand("showdown", e.contenders())
	default:
		return fmt.Errorf("cannot advance from phase %q", e.state.Phase)
	}

	cards, rest, err := deck.DealN(e.deck, dealCount)
	if err != nil {
		return fmt.Errorf("deal %s: %w", e.state.Phase, err)
	}
	e.state.CommunityCards = append(e.state.CommunityCards, cards...)
	e.deck = rest

	e.logger.Debug("street dealt", "phase", e.state.Phase, "board", len(e.state.CommunityCards))

	// Fewer than two players can still voluntarily act: no betting round
	// can happen, run the remaining streets straight through.
	if e.countCanAct() < 2 {
		e.state.ActivePlayerIndex = NoSeat
		e.closingActionIndex = NoSeat
		return e.advancePhase()
	}

	first := e.postFlopFirstToAct()
	e.state.ActivePlayerIndex = first
	e.closingActionIndex = first
	e.touch()
	return nil
}

// postFlopFirstToAct returns the seat opening post-flop betting: heads-up
// action starts at the small blind (the button); with three or more players
// it starts left of the dealer.
func (e *Engine) postFlopFirstToAct() int {
	actors := e.state.actors()
	if e.dealtInCount() == 2 {
		return rules.NextEligible(actors, e.state.SmallBlindPosition)
	}
	return rules.NextEligible(actors, e.state.DealerPosition+1)
}

// finishHand distributes the pot and closes the hand. For a showdown with
// several contenders the pot is split evenly among the tied best hands with
// the integer remainder going to the first winner in evaluator sort order.
//
// The whole pot is distributed undivided: side pots for multiple uneven
// all-in stacks are not constructed.
func (e *Engine) finishHand(reason string, contenders []int) error {
	prePot := e.state.Pot

	var winners []WinnerShare
	switch {
	case len(contenders) == 0:
		return fmt.Errorf("no contenders to award the pot to")
	case len(contenders) == 1:
		w := &e.state.Players[contenders[0]]
		w.Stack += prePot
		winners = []WinnerShare{{PlayerID: w.ID, Amount: prePot}}
	default:
		evals := make(map[int]evaluator.Evaluation, len(contenders))
		for _, idx := range contenders {
			ev, err := evaluator.Evaluate(e.state.Players[idx].Cards, e.state.CommunityCards)
			if err != nil {
				return fmt.Errorf("evaluate seat %d: %w", idx, err)
			}
			evals[idx] = ev
		}

		// Stable sort keeps seat order among ties, which pins where the
		// integer remainder goes.
		sorted := append([]int(nil), contenders...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return evaluator.Compare(evals[sorted[i]], evals[sorted[j]]) > 0
		})

		best := evals[sorted[0]]
		tied := []int{}
		for _, idx := range sorted {
			if evaluator.Compare(evals[idx], best) != 0 {
				break
			}
			tied = append(tied, idx)
		}

		share := prePot / len(tied)
		remainder := prePot % len(tied)
		winners = make([]WinnerShare, len(tied))
		for i, idx := range tied {
			amount := share
			if i == 0 {
				amount += remainder
			}
			w := &e.state.Players[idx]
			w.Stack += amount
			winners[i] = WinnerShare{
				PlayerID: w.ID,
				Amount:   amount,
				Hand:     evals[idx].Category.String(),
			}
		}
	}

	e.state.Pot = 0
	e.state.Phase = Finished
	e.state.ActivePlayerIndex = NoSeat
	e.closingActionIndex = NoSeat
	e.state.LastHandResult = &HandResult{
		Reason:    reason,
		Winners:   winners,
		Pot:       prePot,
		Timestamp: time.Now().UTC(),
	}

	// Busted players sit out until they rebuy.
	for i := range e.state.Players {
		if e.state.Players[i].Stack <= 0 {
			e.state.Players[i].IsActive = false
		}
	}
	e.touch()

	e.logger.Debug("hand finished", "reason", reason, "pot", prePot, "winners", len(winners))
	return nil
}

// contenders returns the seats still in contention for the pot.
func (e *Engine) contenders() []int {
	var out []int
	for i := range e.state.Players {
		if e.state.Players[i].dealtIn() && !e.state.Players[i].HasFolded {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) dealtInCount() int {
	n := 0
	for i := range e.state.Players {
		if e.state.Players[i].dealtIn() {
			n++
		}
	}
	return n
}

func (e *Engine) countCanAct() int {
	n := 0
	for _, a := range e.state.actors() {
		if a.CanAct() {
			n++
		}
	}
	return n
}

// allBetsMatched reports whether every contender has matched the table bet
// or is out of chips behind it.
func (e *Engine) allBetsMatched() bool {
	for i := range e.state.Players {
		p := &e.state.Players[i]
		if !p.dealtIn() || p.HasFolded || p.IsAllIn || p.Stack == 0 {
			continue
		}
		if p.CurrentBet != e.state.CurrentBet {
			return false
		}
	}
	return true
}

// nextSeatWithChips scans circularly from the seat after the given one for
// the next player holding chips. The caller guarantees one exists.
func (e *Engine) nextSeatWithChips(from int) int {
	n := len(e.state.Players)
	for i := 1; i <= n; i++ {
		idx := ((from+i)%n + n) % n
		if e.state.Players[idx].Stack > 0 {
			return idx
		}
	}
	return NoSeat
}

func (e *Engine) appendHistory(a GameAction) {
	a.Timestamp = time.Now().UTC()
	e.state.History = append(e.state.History, a)
}

