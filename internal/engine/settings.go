package engine

import "fmt"

// AnteType selects how forced antes are assessed each hand.
type AnteType string

const (
	AnteNone AnteType = "none"
	// AntePerPlayer charges every dealt-in player the ante amount.
	AntePerPlayer AnteType = "ante"
	// AnteBigBlind charges the whole ante total to the big blind seat.
	AnteBigBlind AnteType = "bb-ante"
)

// AnteConfig couples the ante mode with its amount.
type AnteConfig struct {
	Type   AnteType `json:"type"`
	Amount int      `json:"amount"`
}

// StackRange bounds the stacks players may bring to the table.
type StackRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// TimeBankConfig configures the per-player reserve time the transport layer
// grants on top of the turn timer. The engine itself never runs timers.
type TimeBankConfig struct {
	Banks          int `json:"banks"`
	SecondsPerBank int `json:"secondsPerBank"`
}

// Settings is the per-table configuration, validated once before an engine
// is constructed and shared verbatim with the transport layer.
type Settings struct {
	SmallBlind        int            `json:"smallBlind"`
	BigBlind          int            `json:"bigBlind"`
	StartingStack     int            `json:"startingStack"`
	StackRange        StackRange     `json:"stackRange"`
	MaxPlayers        int            `json:"maxPlayers"`
	TurnTimerSeconds  int            `json:"turnTimerSeconds"`
	TimeBank          TimeBankConfig `json:"timeBankConfig"`
	Ante              AnteConfig     `json:"ante"`
	GameLengthMinutes int            `json:"gameLengthMinutes,omitempty"`
}

// Validate checks the numeric contract shared by the engine and any
// HTTP-layer collaborator that accepts table settings from clients.
func (s Settings) Validate() error {
	if s.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if s.BigBlind < s.SmallBlind {
		return fmt.Errorf("big blind %d must be at least the small blind %d", s.BigBlind, s.SmallBlind)
	}
	if s.StartingStack <= 0 {
		return fmt.Errorf("starting stack must be positive")
	}
	if s.StartingStack < 10*s.BigBlind {
		return fmt.Errorf("starting stack %d must be at least 10 big blinds (%d)", s.StartingStack, 10*s.BigBlind)
	}
	if s.StackRange.Min <= 0 || s.StackRange.Max <= 0 {
		return fmt.Errorf("stack range bounds must be positive")
	}
	if s.StackRange.Max < s.StackRange.Min {
		return fmt.Errorf("stack range max %d below min %d", s.StackRange.Max, s.StackRange.Min)
	}
	if s.MaxPlayers < 2 || s.MaxPlayers > 10 {
		return fmt.Errorf("max players must be between 2 and 10, got %d", s.MaxPlayers)
	}
	if s.TurnTimerSeconds < 5 {
		return fmt.Errorf("turn timer must be at least 5 seconds")
	}
	if s.TimeBank.Banks < 0 || s.TimeBank.Banks > 20 {
		return fmt.Errorf("time banks must be between 0 and 20, got %d", s.TimeBank.Banks)
	}
	if s.TimeBank.Banks > 0 && (s.TimeBank.SecondsPerBank < 5 || s.TimeBank.SecondsPerBank > 120) {
		return fmt.Errorf("seconds per time bank must be between 5 and 120, got %d", s.TimeBank.SecondsPerBank)
	}
	switch s.Ante.Type {
	case AnteNone:
		if s.Ante.Amount < 0 {
			return fmt.Errorf("ante amount must not be negative")
		}
	case AntePerPlayer, AnteBigBlind:
		if s.Ante.Amount <= 0 {
			return fmt.Errorf("ante amount must be positive for ante type %q", s.Ante.Type)
		}
	default:
		return fmt.Errorf("unknown ante type %q", s.Ante.Type)
	}
	if s.GameLengthMinutes != 0 && s.GameLengthMinutes < 5 {
		return fmt.Errorf("game length must be at least 5 minutes")
	}
	return nil
}
