package rules

import (
	"strings"
	"testing"
)

func active(stack, bet int) Actor {
	return Actor{Stack: stack, CurrentBet: bet, IsActive: true}
}

func TestMinRaise(t *testing.T) {
	t.Parallel()

	// No raise yet this round: current bet plus one big blind.
	if got := MinRaise(20, 0, 20); got != 40 {
		t.Errorf("MinRaise(20,0,20) = %d, want 40", got)
	}
	// After a raise of 30, the next raise must be at least 30 more.
	if got := MinRaise(50, 30, 20); got != 80 {
		t.Errorf("MinRaise(50,30,20) = %d, want 80", got)
	}
	// Unopened pot post-flop.
	if got := MinRaise(0, 0, 20); got != 20 {
		t.Errorf("MinRaise(0,0,20) = %d, want 20", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		actor      Actor
		action     Action
		amount     int
		currentBet int
		minRaise   int
		wantErr    string
	}{
		{"fold always valid", active(100, 0), Fold, 0, 50, 100, ""},
		{"fold while short", active(1, 0), Fold, 0, 50, 100, ""},
		{"check with matched bet", active(100, 50), Check, 0, 50, 100, ""},
		{"check into live bet", active(100, 0), Check, 0, 50, 100, "cannot check"},
		{"call live bet", active(100, 0), Call, 0, 50, 100, ""},
		{"call short stack still valid", active(10, 0), Call, 0, 50, 100, ""},
		{"call with no bet", active(100, 50), Call, 0, 50, 100, "nothing to call"},
		{"raise at minimum", active(200, 0), Raise, 100, 50, 100, ""},
		{"raise below minimum", active(200, 0), Raise, 60, 50, 100, "minimum raise is 100"},
		{"raise not above current bet", active(200, 0), Raise, 50, 50, 100, "must exceed"},
		{"raise beyond stack", active(80, 0), Raise, 100, 50, 100, "insufficient chips"},
		{"all-in with chips", active(5, 0), AllIn, 0, 50, 100, ""},
		{"all-in without chips", active(0, 0), AllIn, 0, 50, 100, "no chips"},
		{"folded player", Actor{Stack: 100, HasFolded: true, IsActive: true}, Call, 0, 50, 100, "cannot act"},
		{"inactive player", Actor{Stack: 100}, Fold, 0, 50, 100, "cannot act"},
		{"already all-in", Actor{Stack: 0, IsAllIn: true, IsActive: true}, Check, 0, 0, 20, "already all-in"},
		{"unknown action", active(100, 0), Action("bet"), 0, 0, 20, "unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.actor, tt.action, tt.amount, tt.currentBet, tt.minRaise)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got error %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	out, err := Apply(active(100, 0), Fold, 0, 50, 100)
	if err != nil || out.ChipsCommitted != 0 || out.NewBet != 0 {
		t.Errorf("fold outcome %+v err %v", out, err)
	}

	out, err = Apply(active(100, 50), Check, 0, 50, 100)
	if err != nil || out.ChipsCommitted != 0 || out.NewBet != 50 {
		t.Errorf("check outcome %+v err %v", out, err)
	}

	// Full call.
	out, err = Apply(active(100, 10), Call, 0, 50, 100)
	if err != nil || out.ChipsCommitted != 40 || out.NewBet != 50 || out.IsAllIn {
		t.Errorf("call outcome %+v err %v", out, err)
	}

	// Short call caps at the stack and is an all-in.
	out, err = Apply(active(25, 10), Call, 0, 50, 100)
	if err != nil {
		t.Fatalf("short call: %v", err)
	}
	if out.ChipsCommitted != 25 || out.NewBet != 35 || !out.IsAllIn {
		t.Errorf("short call outcome %+v", out)
	}

	// Raise commits the difference to the raise-to amount.
	out, err = Apply(active(200, 20), Raise, 100, 50, 100)
	if err != nil || out.ChipsCommitted != 80 || out.NewBet != 100 || out.IsAllIn {
		t.Errorf("raise outcome %+v err %v", out, err)
	}

	// Raise for exactly the stack is an all-in.
	out, err = Apply(active(80, 20), Raise, 100, 50, 100)
	if err != nil || !out.IsAllIn {
		t.Errorf("exact-stack raise outcome %+v err %v", out, err)
	}

	// All-in shoves the whole stack regardless of the bet level.
	out, err = Apply(active(30, 10), AllIn, 0, 50, 100)
	if err != nil || out.ChipsCommitted != 30 || out.NewBet != 40 || !out.IsAllIn {
		t.Errorf("all-in outcome %+v err %v", out, err)
	}
}

func TestNextEligible(t *testing.T) {
	t.Parallel()
	actors := []Actor{
		active(100, 0),                        // 0
		{Stack: 100, HasFolded: true, IsActive: true}, // 1
		{Stack: 0, IsAllIn: true, IsActive: true},     // 2
		active(100, 0),                        // 3
		{Stack: 0, IsActive: true},            // 4: felted
	}

	if got := NextEligible(actors, 1); got != 3 {
		t.Errorf("NextEligible from 1 = %d, want 3", got)
	}
	// Wraps around.
	if got := NextEligible(actors, 4); got != 0 {
		t.Errorf("NextEligible from 4 = %d, want 0", got)
	}
	// Index normalization past the end.
	if got := NextEligible(actors, 5); got != 0 {
		t.Errorf("NextEligible from 5 = %d, want 0", got)
	}

	// Nobody can act.
	none := []Actor{
		{Stack: 100, HasFolded: true, IsActive: true},
		{Stack: 0, IsAllIn: true, IsActive: true},
	}
	if got := NextEligible(none, 0); got != -1 {
		t.Errorf("NextEligible with no eligible actors = %d, want -1", got)
	}
	if got := NextEligible(nil, 0); got != -1 {
		t.Errorf("NextEligible on empty = %d, want -1", got)
	}
}
