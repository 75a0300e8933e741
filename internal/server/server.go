// Package server exposes the betting engine over WebSockets. The engine is
// single-threaded per table; the Registry serializes access, persists
// snapshots after every mutation, and runs turn timers. The Server owns the
// HTTP listener and fans state updates out to connected players.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/feltkit/holdem/internal/engine"
	"github.com/feltkit/holdem/internal/variant"
)

// Server is the WebSocket front end for the registry.
type Server struct {
	config   *Config
	registry *Registry
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*Connection]struct{}
}

// NewServer wires a server to its registry. The registry's update callback
// is claimed by the server; there is one transport per registry.
func NewServer(config *Config, registry *Registry, logger *log.Logger) *Server {
	s := &Server{
		config:   config,
		registry: registry,
		logger:   logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*Connection]struct{}),
	}
	registry.SetUpdateFunc(s.broadcastState)
	return s
}

// Run serves until ctx is cancelled, then drains connections and shuts the
// listener down.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpServer := &http.Server{
		Addr:    s.config.ListenAddress(),
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")
		s.closeConnections()
		s.registry.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	conn := NewConnection(ws, s, s.logger)
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	conn.Start()
}

func (s *Server) removeConnection(conn *Connection) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// broadcastState pushes each seated player their redacted view of a table.
func (s *Server) broadcastState(gameID string) {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.conns))
	for conn := range s.conns {
		if conn.GetGame() == gameID {
			conns = append(conns, conn)
		}
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		state, err := s.registry.StateFor(gameID, conn.GetPlayer())
		if err != nil {
			s.logger.Error("Failed to build state view", "game", gameID, "error", err)
			continue
		}
		msg, err := NewMessage(MessageTypeGameState, state)
		if err != nil {
			s.logger.Error("Failed to encode state", "game", gameID, "error", err)
			continue
		}
		_ = conn.SendMessage(msg)
	}
}

// defaultSettings builds the settings for a new table: variant defaults
// overlaid with the server's configured table block.
func (s *Server) defaultSettings(v variant.Variant) (engine.Settings, error) {
	settings, err := variant.Defaults(v)
	if err != nil {
		return engine.Settings{}, err
	}
	if s.config.Table.SmallBlind > 0 {
		settings.SmallBlind = s.config.Table.SmallBlind
	}
	if s.config.Table.BigBlind > 0 {
		settings.BigBlind = s.config.Table.BigBlind
	}
	if s.config.Table.StartingStack > 0 {
		settings.StartingStack = s.config.Table.StartingStack
	}
	if s.config.Table.MaxPlayers > 0 {
		settings.MaxPlayers = s.config.Table.MaxPlayers
	}
	if s.config.Table.TurnTimer > 0 {
		settings.TurnTimerSeconds = s.config.Table.TurnTimer
	}
	return settings, nil
}
