package server

import (
	"encoding/json"
	"fmt"

	"github.com/feltkit/holdem/internal/engine"
)

// MessageType identifies the payload carried by a Message.
type MessageType string

const (
	// Client -> server
	MessageTypeCreateGame MessageType = "create_game"
	MessageTypeJoinGame   MessageType = "join_game"
	MessageTypeStartGame  MessageType = "start_game"
	MessageTypeNextHand   MessageType = "next_hand"
	MessageTypeAction     MessageType = "action"
	MessageTypeRebuy      MessageType = "rebuy"
	MessageTypeLeaveGame  MessageType = "leave_game"

	// Server -> client
	MessageTypeGameCreated MessageType = "game_created"
	MessageTypeGameJoined  MessageType = "game_joined"
	MessageTypeGameState   MessageType = "game_state"
	MessageTypeError       MessageType = "error"
)

func (t MessageType) String() string { return string(t) }

// Message is the envelope for all WebSocket traffic.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message with a JSON-encoded payload.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &Message{Type: msgType, Data: data}, nil
}

// CreateGameData asks the server to open a new table. Settings overrides are
// optional; the server fills in its configured table defaults.
type CreateGameData struct {
	Variant    string           `json:"variant,omitempty"`
	PlayerName string           `json:"playerName"`
	Avatar     string           `json:"avatar,omitempty"`
	Settings   *engine.Settings `json:"settings,omitempty"`
}

// GameCreatedData confirms a new table and identifies the host.
type GameCreatedData struct {
	GameID   string `json:"gameId"`
	JoinCode string `json:"joinCode"`
	PlayerID string `json:"playerId"`
}

// JoinGameData asks to sit at an existing table by join code.
type JoinGameData struct {
	JoinCode   string `json:"joinCode"`
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar,omitempty"`
}

// GameJoinedData confirms a seat at a table.
type GameJoinedData struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// ActionData carries a betting decision.
type ActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// RebuyData carries a rebuy request between hands.
type RebuyData struct {
	Amount int `json:"amount"`
}

// ErrorData reports a rejected request. The table state is unchanged.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
