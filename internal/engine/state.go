package engine

import (
	"time"

	"github.com/feltkit/holdem/internal/deck"
	"github.com/feltkit/holdem/internal/rules"
)

// Phase is the hand lifecycle state. Within a hand it only moves forward;
// it resets to Waiting (or a fresh PreFlop) when the next hand starts.
type Phase string

const (
	Waiting  Phase = "waiting"
	PreFlop  Phase = "pre-flop"
	Flop     Phase = "flop"
	Turn     Phase = "turn"
	River    Phase = "river"
	Showdown Phase = "showdown"
	Finished Phase = "finished"
)

// Betting reports whether the phase accepts player actions.
func (p Phase) Betting() bool {
	switch p {
	case PreFlop, Flop, Turn, River:
		return true
	default:
		return false
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case Waiting, PreFlop, Flop, Turn, River, Showdown, Finished:
		return true
	default:
		return false
	}
}

// NoSeat is the sentinel for seat-index fields when no seat applies.
const NoSeat = -1

// Player is one seat at the table.
type Player struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Avatar     string      `json:"avatar,omitempty"`
	Stack      int         `json:"stack"`
	CurrentBet int         `json:"currentBet"`
	IsActive   bool        `json:"isActive"`
	IsAllIn    bool        `json:"isAllIn"`
	HasFolded  bool        `json:"hasFolded"`
	Position   int         `json:"position"`
	Cards      []deck.Card `json:"cards,omitempty"`
}

// dealtIn reports whether the player was dealt into the current hand.
func (p *Player) dealtIn() bool {
	return p.IsActive && len(p.Cards) == 2
}

func (p *Player) actor() rules.Actor {
	return rules.Actor{
		Stack:      p.Stack,
		CurrentBet: p.CurrentBet,
		HasFolded:  p.HasFolded,
		IsAllIn:    p.IsAllIn,
		IsActive:   p.IsActive,
	}
}

// GameAction is one entry in the append-only hand history: the audit trail
// external stats and history collaborators consume.
type GameAction struct {
	PlayerID        string       `json:"playerId"`
	Action          rules.Action `json:"action"`
	Amount          int          `json:"amount,omitempty"`
	Phase           Phase        `json:"phase"`
	BetTo           int          `json:"betTo"`
	CurrentBetAfter int          `json:"currentBetAfter"`
	Timestamp       time.Time    `json:"timestamp"`
}

// WinnerShare is one winner's cut of a distributed pot.
type WinnerShare struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	Hand     string `json:"hand,omitempty"`
}

// HandResult summarises a finished hand.
type HandResult struct {
	Reason    string        `json:"reason"` // "fold" or "showdown"
	Winners   []WinnerShare `json:"winners"`
	Pot       int           `json:"pot"`
	Timestamp time.Time     `json:"timestamp"`
}

// GameState is the authoritative table snapshot returned to callers. All
// fields are plain data so the state round-trips through JSON unchanged.
type GameState struct {
	ID                 string      `json:"id"`
	JoinCode           string      `json:"joinCode"`
	Variant            string      `json:"variant"`
	Phase              Phase       `json:"phase"`
	Players            []Player    `json:"players"`
	CommunityCards     []deck.Card `json:"communityCards"`
	Pot                int         `json:"pot"`
	CurrentBet         int         `json:"currentBet"`
	DealerPosition     int         `json:"dealerPosition"`
	SmallBlindPosition int         `json:"smallBlindPosition"`
	BigBlindPosition   int         `json:"bigBlindPosition"`
	ActivePlayerIndex  int         `json:"activePlayerIndex"`
	Settings           Settings    `json:"settings"`
	History            []GameAction `json:"history"`
	HostPlayerID       string      `json:"hostPlayerId"`
	LastHandResult     *HandResult `json:"lastHandResult,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// clone returns a deep copy of the state. Every public accessor goes through
// this so callers can never alias engine internals.
func (s GameState) clone() GameState {
	out := s

	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p
		if p.Cards != nil {
			out.Players[i].Cards = append([]deck.Card(nil), p.Cards...)
		}
	}

	if s.CommunityCards != nil {
		out.CommunityCards = append([]deck.Card(nil), s.CommunityCards...)
	}
	if s.History != nil {
		out.History = append([]GameAction(nil), s.History...)
	}
	if s.LastHandResult != nil {
		res := *s.LastHandResult
		res.Winners = append([]WinnerShare(nil), s.LastHandResult.Winners...)
		out.LastHandResult = &res
	}

	return out
}

// playerByID returns the seat holding the given player, or nil.
func (s *GameState) playerByID(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *GameState) actors() []rules.Actor {
	actors := make([]rules.Actor, len(s.Players))
	for i := range s.Players {
		actors[i] = s.Players[i].actor()
	}
	return actors
}
