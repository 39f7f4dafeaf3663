package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MessageHandler receives decoded client traffic from the connection manager.
type MessageHandler interface {
	// HandleMessage is called for every frame read from a client.
	HandleMessage(conn *Connection, raw []byte)
	// HandleDisconnect is called once after a connection is unregistered,
	// with the ids of every game the connection had joined.
	HandleDisconnect(conn *Connection, gameIDs []string)
}

// ConnectionManager manages WebSocket connections and their game room
// membership, and fans broadcasts out to rooms.
type ConnectionManager struct {
	// Connection pools organized by game ID
	gameConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Event broadcasting
	broadcastCh chan BroadcastMessage

	handler MessageHandler
}

// Connection represents a WebSocket connection to a client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Game membership and the gone flag, guarded by the manager's lock.
	// gone marks a connection whose teardown has already run; such a
	// connection must never re-enter a room.
	games map[string]bool
	gone  bool

	// Connection metadata
	ConnectedAt time.Time

	teardown sync.Once

	// sendMu serializes sends against the close of Send
	sendMu sync.Mutex
	closed bool
}

// trySend enqueues a frame unless the connection is closed or its buffer is
// full. Reports whether the frame was accepted.
func (c *Connection) trySend(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to a game's room.
// Payload is marshaled at fan-out time; Raw, when set, is relayed verbatim.
type BroadcastMessage struct {
	GameID  string
	Event   string
	Payload any
	Raw     json.RawMessage
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		gameConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetHandler installs the message handler. Must be called before any
// connection is upgraded.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start begins processing broadcast messages.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts its
// read/write pumps. Game membership happens later via joinGame events.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		games:       make(map[string]bool),
		ConnectedAt: time.Now(),
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Msg("WebSocket connection established")

	return nil
}

// JoinGame adds a connection to a game's room. Reports whether the
// connection was admitted; a connection whose teardown already ran is
// refused so it cannot occupy a room slot forever.
func (cm *ConnectionManager) JoinGame(conn *Connection, gameID string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.gone {
		log.Debug().
			Str("connection_id", conn.ID).
			Str("game_id", gameID).
			Msg("refusing room join for disconnected connection")
		return false
	}

	if cm.gameConnections[gameID] == nil {
		cm.gameConnections[gameID] = make(map[*Connection]bool)
	}
	cm.gameConnections[gameID][conn] = true
	conn.games[gameID] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", gameID).
		Int("room_size", len(cm.gameConnections[gameID])).
		Msg("connection joined game room")
	return true
}

// disconnect removes a connection from every room exactly once and notifies
// the handler so session membership is cleaned up.
func (cm *ConnectionManager) disconnect(conn *Connection) {
	conn.teardown.Do(func() {
		cm.mu.Lock()
		conn.gone = true
		gameIDs := make([]string, 0, len(conn.games))
		for gameID := range conn.games {
			gameIDs = append(gameIDs, gameID)
			if room, exists := cm.gameConnections[gameID]; exists {
				delete(room, conn)
				if len(room) == 0 {
					delete(cm.gameConnections, gameID)
				}
			}
		}
		conn.games = make(map[string]bool)
		cm.mu.Unlock()

		conn.closeSend()

		log.Info().
			Str("connection_id", conn.ID).
			Int("games", len(gameIDs)).
			Msg("connection disconnected")

		if cm.handler != nil {
			cm.handler.HandleDisconnect(conn, gameIDs)
		}
	})
}

// BroadcastState implements game.Broadcaster: it enqueues a gameState
// payload for every connection in the game's room. Never blocks.
func (cm *ConnectionManager) BroadcastState(gameID string, payload any) {
	cm.enqueue(BroadcastMessage{GameID: gameID, Event: EventGameState, Payload: payload})
}

// BroadcastChat relays a chat message verbatim to the game's room,
// including the sender.
func (cm *ConnectionManager) BroadcastChat(gameID string, message json.RawMessage) {
	cm.enqueue(BroadcastMessage{GameID: gameID, Event: EventChatMessage, Raw: message})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	default:
		log.Warn().Str("game_id", message.GameID).Msg("broadcast channel full, dropping message")
	}
}

// SendEvent delivers an event to a single connection, outside any room.
func (cm *ConnectionManager) SendEvent(conn *Connection, event string, payload any) {
	frame, err := marshalEnvelope(event, payload, nil)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}
	cm.deliver(conn, frame)
}

// handleBroadcast fans one message out to a room.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	room, exists := cm.gameConnections[message.GameID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot the room to avoid holding the lock during sends
	targets := make([]*Connection, 0, len(room))
	for conn := range room {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	frame, err := marshalEnvelope(message.Event, message.Payload, message.Raw)
	if err != nil {
		log.Error().Err(err).Str("event", message.Event).Msg("failed to marshal broadcast")
		return
	}

	for _, conn := range targets {
		cm.deliver(conn, frame)
	}

	log.Debug().
		Str("event", message.Event).
		Str("game_id", message.GameID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

func (cm *ConnectionManager) deliver(conn *Connection, frame []byte) {
	if !conn.trySend(frame) {
		// Connection is slow/dead, close it
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.disconnect(conn)
		conn.Conn.Close()
	}
}

func marshalEnvelope(event string, payload any, raw json.RawMessage) ([]byte, error) {
	data := raw
	if data == nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Stats returns statistics about active connections.
func (cm *ConnectionManager) Stats() (totalConnections, activeGames int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	seen := make(map[*Connection]bool)
	for _, room := range cm.gameConnections {
		for conn := range room {
			seen[conn] = true
		}
	}
	return len(seen), len(cm.gameConnections)
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.disconnect(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.disconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.handler != nil {
			c.Manager.handler.HandleMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
