package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jkram11/bombsquad/go/internal/game"
)

// Router dispatches decoded client events to the game registry. Invalid or
// unroutable events are dropped: the protocol is fire-and-forget and no-ops
// get no response.
type Router struct {
	registry *game.Registry
	manager  *ConnectionManager
}

// NewRouter creates a router over the given registry and manager.
func NewRouter(registry *game.Registry, manager *ConnectionManager) *Router {
	return &Router{registry: registry, manager: manager}
}

// HandleMessage implements MessageHandler.
func (rt *Router) HandleMessage(conn *Connection, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("dropping malformed client frame")
		return
	}

	switch env.Event {
	case EventJoinGame:
		rt.handleJoin(conn, env.Data)
	case EventChatMessage:
		rt.handleChat(conn, env.Data)
	case EventSolveModule:
		rt.handleSolveModule(conn, env.Data)
	case EventAddStrike:
		rt.handleAddStrike(conn, env.Data)
	default:
		log.Debug().
			Str("connection_id", conn.ID).
			Str("event", env.Event).
			Msg("dropping unknown client event")
	}
}

// HandleDisconnect implements MessageHandler: the connection leaves every
// game it had joined, tearing down the ones it emptied.
func (rt *Router) HandleDisconnect(conn *Connection, gameIDs []string) {
	for _, gameID := range gameIDs {
		rt.registry.Leave(gameID, conn.ID)
	}
}

func (rt *Router) handleJoin(conn *Connection, data json.RawMessage) {
	var payload JoinGamePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.GameID == "" {
		log.Debug().Str("connection_id", conn.ID).Msg("dropping invalid joinGame payload")
		return
	}

	// Resolve-or-create and session membership happen atomically inside the
	// registry, so a concurrent last-member removal cannot strand this join
	// on a session that already left the map.
	snapshot := rt.registry.Join(payload.GameID, conn.ID, payload.Role)

	if !rt.manager.JoinGame(conn, payload.GameID) {
		// The connection was torn down while the join was in flight; undo
		// the session membership so the game can empty out and stop.
		rt.registry.Leave(payload.GameID, conn.ID)
		return
	}
	rt.manager.SendEvent(conn, EventGameState, snapshot)

	log.Info().
		Str("connection_id", conn.ID).
		Str("game_id", payload.GameID).
		Str("role", payload.Role).
		Msg("player joined game")
}

// handleChat relays the message bytes untouched so clients see exactly what
// the sender wrote, sender included.
func (rt *Router) handleChat(conn *Connection, data json.RawMessage) {
	var routing chatRoutingPayload
	if err := json.Unmarshal(data, &routing); err != nil || routing.GameID == "" {
		log.Debug().Str("connection_id", conn.ID).Msg("dropping unroutable chat message")
		return
	}
	rt.manager.BroadcastChat(routing.GameID, data)
}

func (rt *Router) handleSolveModule(conn *Connection, data json.RawMessage) {
	var payload SolveModulePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Debug().Str("connection_id", conn.ID).Msg("dropping invalid solveModule payload")
		return
	}

	// Events against a never-created game are silently dropped
	if session := rt.registry.Get(payload.GameID); session != nil {
		session.SolveModule(payload.ModuleID)
	}
}

func (rt *Router) handleAddStrike(conn *Connection, data json.RawMessage) {
	var payload AddStrikePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	if session := rt.registry.Get(payload.GameID); session != nil {
		session.AddStrike()
	}
}
