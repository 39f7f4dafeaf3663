package gateway

import "encoding/json"

// Envelope is the wire frame for every inbound and outbound message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound event names.
const (
	EventJoinGame    = "joinGame"
	EventChatMessage = "chatMessage"
	EventSolveModule = "solveModule"
	EventAddStrike   = "addStrike"
)

// Outbound event names. Chat messages go back out under the same event name
// they arrived on.
const (
	EventGameState = "gameState"
)

// JoinGamePayload attaches a connection to a game under a role.
type JoinGamePayload struct {
	GameID string `json:"gameId"`
	Role   string `json:"role"`
}

// SolveModulePayload marks one module solved.
type SolveModulePayload struct {
	GameID   string `json:"gameId"`
	ModuleID string `json:"moduleId"`
}

// AddStrikePayload records one mistake against a game.
type AddStrikePayload struct {
	GameID string `json:"gameId"`
}

// chatRoutingPayload extracts only the routing field from a chat message;
// the message itself is relayed verbatim, sender included.
type chatRoutingPayload struct {
	GameID string `json:"gameId"`
}
