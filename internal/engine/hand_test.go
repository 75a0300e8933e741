package engine

import (
	"strings"
	"testing"

	"github.com/feltkit/holdem/internal/deck"
	"github.com/feltkit/holdem/internal/rules"
)

func cards(t *testing.T, notations ...string) []deck.Card {
	t.Helper()
	out := make([]deck.Card, len(notations))
	for i, n := range notations {
		c, err := deck.ParseCard(n)
		if err != nil {
			t.Fatalf("bad card %q: %v", n, err)
		}
		out[i] = c
	}
	return out
}

func mustAct(t *testing.T, e *Engine, playerID string, action rules.Action, amount int) {
	t.Helper()
	if err := e.ProcessPlayerAction(playerID, action, amount); err != nil {
		t.Fatalf("%s by %s: %v", action, playerID, err)
	}
}

// totalChips sums every stack plus the pot. It must be invariant across a
// hand.
func totalChips(state GameState) int {
	total := state.Pot
	for _, p := range state.Players {
		total += p.Stack
	}
	return total
}

func TestBlindsPosted(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	state := e.State()
	if state.Phase != PreFlop {
		t.Fatalf("phase %s, want pre-flop", state.Phase)
	}
	if state.DealerPosition != 0 || state.SmallBlindPosition != 1 || state.BigBlindPosition != 2 {
		t.Errorf("positions dealer=%d sb=%d bb=%d, want 0/1/2",
			state.DealerPosition, state.SmallBlindPosition, state.BigBlindPosition)
	}
	if state.Pot != 30 {
		t.Errorf("pot %d, want 30", state.Pot)
	}
	if state.CurrentBet != 20 {
		t.Errorf("current bet %d, want 20", state.CurrentBet)
	}
	if got := state.Players[1].CurrentBet; got != 10 {
		t.Errorf("small blind bet %d, want 10", got)
	}
	if got := state.Players[1].Stack; got != 990 {
		t.Errorf("small blind stack %d, want 990", got)
	}
	if got := state.Players[2].CurrentBet; got != 20 {
		t.Errorf("big blind bet %d, want 20", got)
	}
	if state.ActivePlayerIndex != 0 {
		t.Errorf("first to act %d, want seat left of big blind", state.ActivePlayerIndex)
	}
	for _, p := range state.Players {
		if len(p.Cards) != 2 {
			t.Errorf("player %s has %d cards", p.ID, len(p.Cards))
		}
	}

	// The forced posts open the hand history.
	if len(state.History) != 2 {
		t.Fatalf("history has %d entries, want the two blind posts", len(state.History))
	}
	if state.History[0].Action != rules.PostBlind || state.History[0].Amount != 10 {
		t.Errorf("first history entry %+v, want small blind post", state.History[0])
	}
	if state.History[1].Action != rules.PostBlind || state.History[1].Amount != 20 {
		t.Errorf("second history entry %+v, want big blind post", state.History[1])
	}
}

func TestHeadsUpButtonPostsSmallBlind(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 2, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	state := e.State()
	if state.SmallBlindPosition != state.DealerPosition {
		t.Errorf("heads-up small blind %d should be the button %d",
			state.SmallBlindPosition, state.DealerPosition)
	}
	if state.ActivePlayerIndex != state.DealerPosition {
		t.Errorf("heads-up button should act first pre-flop, active=%d", state.ActivePlayerIndex)
	}
	if state.Pot != 30 {
		t.Errorf("pot %d, want 30", state.Pot)
	}
}

func TestPerPlayerAnte(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.Ante = AnteConfig{Type: AntePerPlayer, Amount: 5}
	e := newTestEngine(t, 3, settings)
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	state := e.State()
	if state.Pot != 45 {
		t.Errorf("pot %d, want 3 antes plus blinds = 45", state.Pot)
	}
	// Antes do not count toward the round bet level.
	if got := state.Players[0].CurrentBet; got != 0 {
		t.Errorf("button round bet %d, want 0 after ante only", got)
	}
	if got := state.Players[0].Stack; got != 995 {
		t.Errorf("button stack %d, want 995", got)
	}
	if state.CurrentBet != 20 {
		t.Errorf("current bet %d, want big blind", state.CurrentBet)
	}
}

func TestBigBlindAnte(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.Ante = AnteConfig{Type: AnteBigBlind, Amount: 30}
	e := newTestEngine(t, 2, settings)
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	state := e.State()
	if state.Pot != 60 {
		t.Errorf("pot %d, want bb-ante 30 plus blinds 30", state.Pot)
	}
	bb := state.Players[state.BigBlindPosition]
	if bb.Stack != 950 {
		t.Errorf("big blind stack %d, want 950", bb.Stack)
	}
	if bb.CurrentBet != 20 {
		t.Errorf("big blind round bet %d, want 20 (ante excluded)", bb.CurrentBet)
	}
	if state.History[0].Action != rules.PostAnte || state.History[0].Amount != 30 {
		t.Errorf("first history entry %+v, want the ante post", state.History[0])
	}
}

func TestMinRaiseEnforced(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	// Opening raise must be at least a full big blind over the bet.
	err := e.ProcessPlayerAction("p1", rules.Raise, 30)
	if err == nil || !strings.Contains(err.Error(), "minimum raise is 40") {
		t.Errorf("short opening raise: %v", err)
	}
	mustAct(t, e, "p1", rules.Raise, 40)

	// After a raise of 20 the next raise must add at least 20 more.
	err = e.ProcessPlayerAction("p2", rules.Raise, 50)
	if err == nil || !strings.Contains(err.Error(), "minimum raise is 60") {
		t.Errorf("short re-raise: %v", err)
	}
	mustAct(t, e, "p2", rules.Raise, 60)

	state := e.State()
	if state.CurrentBet != 60 {
		t.Errorf("current bet %d, want 60", state.CurrentBet)
	}
}

func TestNotYourTurnLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	before := e.State()
	err := e.ProcessPlayerAction("p2", rules.Call, 0)
	if err == nil || !strings.Contains(err.Error(), "not your turn") {
		t.Fatalf("expected turn rejection, got %v", err)
	}

	after := e.State()
	if after.Pot != before.Pot {
		t.Errorf("pot changed on rejected action: %d -> %d", before.Pot, after.Pot)
	}
	if len(after.History) != len(before.History) {
		t.Errorf("history grew on rejected action: %d -> %d", len(before.History), len(after.History))
	}
	for i := range after.Players {
		if after.Players[i].Stack != before.Players[i].Stack {
			t.Errorf("stack of %s changed on rejected action", after.Players[i].ID)
		}
	}

	// Acting twice in a row is the same rejection: the first action passed
	// the turn on.
	mustAct(t, e, "p1", rules.Call, 0)
	if err := e.ProcessPlayerAction("p1", rules.Call, 0); err == nil {
		t.Error("second action by the same player should be rejected")
	}
}

func TestBigBlindGetsOption(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	mustAct(t, e, "p1", rules.Call, 0)
	mustAct(t, e, "p2", rules.Call, 0)

	// All bets are matched but the big blind still gets to act.
	state := e.State()
	if state.Phase != PreFlop {
		t.Fatalf("round closed before the big blind option, phase %s", state.Phase)
	}
	if state.ActivePlayerIndex != state.BigBlindPosition {
		t.Fatalf("active seat %d, want big blind %d", state.ActivePlayerIndex, state.BigBlindPosition)
	}

	mustAct(t, e, "p3", rules.Check, 0)
	if got := e.State().Phase; got != Flop {
		t.Errorf("phase %s after big blind check, want flop", got)
	}
}

func TestFoldWin(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	mustAct(t, e, "p1", rules.Fold, 0)
	mustAct(t, e, "p2", rules.Fold, 0)

	state := e.State()
	if state.Phase != Finished {
		t.Fatalf("phase %s, want finished", state.Phase)
	}
	result := state.LastHandResult
	if result == nil || result.Reason != "fold" {
		t.Fatalf("result %+v, want fold win", result)
	}
	if len(result.Winners) != 1 || result.Winners[0].PlayerID != "p3" {
		t.Fatalf("winners %+v, want the big blind alone", result.Winners)
	}
	if result.Winners[0].Amount != 30 {
		t.Errorf("won %d, want the 30 in blinds", result.Winners[0].Amount)
	}
	if result.Winners[0].Hand != "" {
		t.Errorf("fold win should not disclose a hand, got %q", result.Winners[0].Hand)
	}
	if state.Pot != 0 {
		t.Errorf("pot %d after distribution, want 0", state.Pot)
	}
	if got := state.Players[2].Stack; got != 1010 {
		t.Errorf("winner stack %d, want 1010", got)
	}
}

func TestFullHandChipConservation(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	check := func() {
		t.Helper()
		if total := totalChips(e.State()); total != 3000 {
			t.Fatalf("chips leaked: total %d, want 3000", total)
		}
	}
	check()

	// Pre-flop: call around, big blind checks.
	mustAct(t, e, "p1", rules.Call, 0)
	check()
	mustAct(t, e, "p2", rules.Call, 0)
	check()
	mustAct(t, e, "p3", rules.Check, 0)
	check()

	// Post-flop streets: action starts left of the button and checks
	// through.
	for _, phase := range []Phase{Flop, Turn, River} {
		state := e.State()
		if state.Phase != phase {
			t.Fatalf("phase %s, want %s", state.Phase, phase)
		}
		if state.CurrentBet != 0 {
			t.Errorf("%s opened with bet level %d, want 0", phase, state.CurrentBet)
		}
		if state.ActivePlayerIndex != 1 {
			t.Errorf("%s first to act %d, want seat left of button", phase, state.ActivePlayerIndex)
		}
		mustAct(t, e, "p2", rules.Check, 0)
		mustAct(t, e, "p3", rules.Check, 0)
		mustAct(t, e, "p1", rules.Check, 0)
		check()
	}

	state := e.State()
	if state.Phase != Finished {
		t.Fatalf("phase %s, want finished", state.Phase)
	}
	if state.LastHandResult == nil || state.LastHandResult.Reason != "showdown" {
		t.Fatalf("result %+v, want showdown", state.LastHandResult)
	}
	if len(state.CommunityCards) != 5 {
		t.Errorf("board has %d cards, want 5", len(state.CommunityCards))
	}
	if state.LastHandResult.Pot != 60 {
		t.Errorf("result pot %d, want 60", state.LastHandResult.Pot)
	}
	check()
}

func TestAllInFastForwardAndRebuy(t *testing.T) {
	t.Parallel()

	// Stacked deal: the button takes aces against seven-deuce and a dry
	// board, so the all-in winner is fixed.
	stacked := cards(t,
		"Ah", "Ad", // seat 0
		"7c", "2d", // seat 1
		"Ks", "Qh", "Jc", // flop
		"9s", // turn
		"3d", // river
	)
	e := newTestEngine(t, 2, testSettings(), WithDeck(stacked))
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	mustAct(t, e, "p1", rules.Raise, 1000) // shove
	mustAct(t, e, "p2", rules.Call, 0)

	// Both all-in: the hand runs out all five streets with no further
	// betting.
	state := e.State()
	if state.Phase != Finished {
		t.Fatalf("phase %s, want finished after fast-forward", state.Phase)
	}
	if len(state.CommunityCards) != 5 {
		t.Fatalf("board has %d cards, want 5", len(state.CommunityCards))
	}
	result := state.LastHandResult
	if result == nil || result.Reason != "showdown" {
		t.Fatalf("result %+v, want showdown", result)
	}
	if len(result.Winners) != 1 || result.Winners[0].PlayerID != "p1" {
		t.Fatalf("winners %+v, want p1 with aces", result.Winners)
	}
	if result.Winners[0].Amount != 2000 {
		t.Errorf("won %d, want the full 2000", result.Winners[0].Amount)
	}

	// The busted player sits out until rebuying.
	loser := state.Players[1]
	if loser.Stack != 0 || loser.IsActive {
		t.Fatalf("loser should be felted and sitting out: %+v", loser)
	}
	if err := e.NextHand("p1"); err == nil {
		t.Fatal("next hand should need two players with chips")
	}

	if err := e.Rebuy("p2", 5); err != nil {
		t.Fatal(err)
	}
	if !e.State().Players[1].IsActive {
		t.Error("rebuy should reactivate the player")
	}

	// The short stack posts a short small blind; with them all-in from the
	// blind the next hand fast-forwards straight to showdown.
	if err := e.NextHand("p1"); err != nil {
		t.Fatal(err)
	}
	state = e.State()
	if state.Phase != Finished {
		t.Fatalf("short-blind hand should fast-forward to a result, phase %s", state.Phase)
	}
	if state.DealerPosition != 1 {
		t.Errorf("button did not rotate, dealer %d", state.DealerPosition)
	}
	if total := totalChips(state); total != 2005 {
		t.Errorf("chips leaked across hands: total %d, want 2005", total)
	}
}

func TestSplitPotRemainder(t *testing.T) {
	t.Parallel()

	// Royal flush on the board: both showdown players play the board and
	// tie. The single ante makes the pot odd, so the shares differ by one
	// chip.
	stacked := cards(t,
		"2h", "3h", // seat 0 (button, folds)
		"2c", "3c", // seat 1
		"2d", "3d", // seat 2
		"As", "Ks", "Qs", // flop
		"Js", // turn
		"Ts", // river
	)
	settings := testSettings()
	settings.Ante = AnteConfig{Type: AntePerPlayer, Amount: 1}
	e := newTestEngine(t, 3, settings, WithDeck(stacked))
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	mustAct(t, e, "p1", rules.Fold, 0)
	mustAct(t, e, "p2", rules.Call, 0)
	mustAct(t, e, "p3", rules.Check, 0)
	for _, pid := range []string{"p2", "p3", "p2", "p3", "p2", "p3"} {
		mustAct(t, e, pid, rules.Check, 0)
	}

	state := e.State()
	result := state.LastHandResult
	if result == nil || result.Reason != "showdown" {
		t.Fatalf("result %+v, want showdown", result)
	}
	if result.Pot != 43 {
		t.Fatalf("pot %d, want 43", result.Pot)
	}
	if len(result.Winners) != 2 {
		t.Fatalf("winners %+v, want a two-way tie", result.Winners)
	}

	// The odd chip goes to the first winner in seat order among the tie.
	if result.Winners[0].PlayerID != "p2" || result.Winners[0].Amount != 22 {
		t.Errorf("first share %+v, want p2 with 22", result.Winners[0])
	}
	if result.Winners[1].PlayerID != "p3" || result.Winners[1].Amount != 21 {
		t.Errorf("second share %+v, want p3 with 21", result.Winners[1])
	}
	for _, w := range result.Winners {
		if w.Hand != "Royal Flush" {
			t.Errorf("winner hand %q, want Royal Flush", w.Hand)
		}
	}

	if got := state.Players[1].Stack; got != 1001 {
		t.Errorf("p2 stack %d, want 1001", got)
	}
	if got := state.Players[2].Stack; got != 1000 {
		t.Errorf("p3 stack %d, want 1000", got)
	}
	if total := totalChips(state); total != 3000 {
		t.Errorf("chips leaked: total %d, want 3000", total)
	}
}

func TestButtonRotates(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}
	if got := e.State().DealerPosition; got != 0 {
		t.Fatalf("first hand dealer %d, want 0", got)
	}

	mustAct(t, e, "p1", rules.Fold, 0)
	mustAct(t, e, "p2", rules.Fold, 0)

	if err := e.NextHand("p2"); err == nil {
		t.Error("non-host next hand should be rejected")
	}
	if err := e.NextHand("p1"); err != nil {
		t.Fatal(err)
	}

	state := e.State()
	if state.DealerPosition != 1 || state.SmallBlindPosition != 2 || state.BigBlindPosition != 0 {
		t.Errorf("second hand positions dealer=%d sb=%d bb=%d, want 1/2/0",
			state.DealerPosition, state.SmallBlindPosition, state.BigBlindPosition)
	}
	if state.Phase != PreFlop {
		t.Errorf("phase %s, want pre-flop", state.Phase)
	}
	if len(state.History) != 2 {
		t.Errorf("history should reset per hand, has %d entries", len(state.History))
	}
}

func TestRaiseReopensAction(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	mustAct(t, e, "p1", rules.Call, 0)
	mustAct(t, e, "p2", rules.Call, 0)
	mustAct(t, e, "p3", rules.Raise, 60)

	// The raise restarts the closing scan: both callers must respond
	// before the round closes.
	mustAct(t, e, "p1", rules.Call, 0)
	if got := e.State().Phase; got != PreFlop {
		t.Fatalf("round closed with a caller still owing, phase %s", got)
	}
	mustAct(t, e, "p2", rules.Call, 0)
	if got := e.State().Phase; got != Flop {
		t.Errorf("phase %s after all callers match, want flop", got)
	}
	if got := e.State().Pot; got != 180 {
		t.Errorf("pot %d, want 180", got)
	}
}

func TestFoldingClosingSeatStillClosesRound(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, 3, testSettings())
	if err := e.StartGame("p1"); err != nil {
		t.Fatal(err)
	}

	// Seat 0 opened the round and is the closing seat. When it folds to a
	// raise, the round must still close once the raiser is matched.
	mustAct(t, e, "p1", rules.Call, 0)
	mustAct(t, e, "p2", rules.Raise, 60)
	mustAct(t, e, "p3", rules.Call, 0)
	mustAct(t, e, "p1", rules.Fold, 0)

	if got := e.State().Phase; got != Flop {
		t.Errorf("phase %s, want flop after the fold closes the round", got)
	}
}
