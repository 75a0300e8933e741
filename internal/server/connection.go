package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/feltkit/holdem/internal/rules"
	"github.com/feltkit/holdem/internal/variant"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Deadline for registry calls made on behalf of a message
	requestTimeout = 5 * time.Second
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a player.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once

	playerID string
	gameID   string
}

// NewConnection creates a new connection wrapper.
func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: server,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
		c.server.removeConnection(c)
	})
	return err
}

// SendMessage queues a message for the client.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel closed during shutdown.
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player id.
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player id.
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetGame associates this connection with a game.
func (c *Connection) SetGame(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = gameID
}

// GetGame returns the associated game id.
func (c *Connection) GetGame() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameID
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeCreateGame:
		var data CreateGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse create game data")
			return
		}
		c.handleCreateGame(data)

	case MessageTypeJoinGame:
		var data JoinGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join game data")
			return
		}
		c.handleJoinGame(data)

	case MessageTypeStartGame:
		c.handleStartGame()

	case MessageTypeNextHand:
		c.handleNextHand()

	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse action data")
			return
		}
		c.handleAction(data)

	case MessageTypeRebuy:
		var data RebuyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse rebuy data")
			return
		}
		c.handleRebuy(data)

	case MessageTypeLeaveGame:
		c.handleLeaveGame()

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, requestTimeout)
}

func (c *Connection) handleCreateGame(data CreateGameData) {
	if data.PlayerName == "" {
		c.sendError("invalid_request", "Player name required")
		return
	}

	v := variant.Variant(data.Variant)
	if data.Variant == "" {
		v = variant.Holdem
	}

	settings, err := c.server.defaultSettings(v)
	if err != nil {
		c.sendError("invalid_variant", err.Error())
		return
	}
	if data.Settings != nil {
		settings = *data.Settings
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	gameID, joinCode, playerID, err := c.server.registry.CreateGame(ctx, v, settings, data.PlayerName, data.Avatar)
	if err != nil {
		c.sendError("create_failed", err.Error())
		return
	}

	c.SetPlayer(playerID)
	c.SetGame(gameID)

	response, _ := NewMessage(MessageTypeGameCreated, GameCreatedData{
		GameID:   gameID,
		JoinCode: joinCode,
		PlayerID: playerID,
	})
	_ = c.SendMessage(response)
	c.pushState()
}

func (c *Connection) handleJoinGame(data JoinGameData) {
	if data.PlayerName == "" {
		c.sendError("invalid_request", "Player name required")
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	gameID, playerID, err := c.server.registry.JoinGame(ctx, data.JoinCode, data.PlayerName, data.Avatar)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	c.SetPlayer(playerID)
	c.SetGame(gameID)

	response, _ := NewMessage(MessageTypeGameJoined, GameJoinedData{
		GameID:   gameID,
		PlayerID: playerID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleStartGame() {
	gameID, playerID, ok := c.seated()
	if !ok {
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	if err := c.server.registry.StartGame(ctx, gameID, playerID); err != nil {
		c.sendError("start_failed", err.Error())
	}
}

func (c *Connection) handleNextHand() {
	gameID, playerID, ok := c.seated()
	if !ok {
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	if err := c.server.registry.NextHand(ctx, gameID, playerID); err != nil {
		c.sendError("next_hand_failed", err.Error())
	}
}

func (c *Connection) handleAction(data ActionData) {
	gameID, playerID, ok := c.seated()
	if !ok {
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	if err := c.server.registry.Action(ctx, gameID, playerID, rules.Action(data.Action), data.Amount); err != nil {
		c.sendError("action_rejected", err.Error())
	}
}

func (c *Connection) handleRebuy(data RebuyData) {
	gameID, playerID, ok := c.seated()
	if !ok {
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	if err := c.server.registry.Rebuy(ctx, gameID, playerID, data.Amount); err != nil {
		c.sendError("rebuy_failed", err.Error())
	}
}

func (c *Connection) handleLeaveGame() {
	gameID, playerID, ok := c.seated()
	if !ok {
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	if err := c.server.registry.LeaveGame(ctx, gameID, playerID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}

	c.SetGame("")
	c.SetPlayer("")
}

func (c *Connection) seated() (gameID, playerID string, ok bool) {
	gameID = c.GetGame()
	playerID = c.GetPlayer()
	if gameID == "" || playerID == "" {
		c.sendError("not_in_game", "Join or create a game first")
		return "", "", false
	}
	return gameID, playerID, true
}

// pushState sends the caller their current view without waiting for the next
// broadcast.
func (c *Connection) pushState() {
	gameID := c.GetGame()
	if gameID == "" {
		return
	}
	state, err := c.server.registry.StateFor(gameID, c.GetPlayer())
	if err != nil {
		return
	}
	msg, err := NewMessage(MessageTypeGameState, state)
	if err != nil {
		return
	}
	_ = c.SendMessage(msg)
}
