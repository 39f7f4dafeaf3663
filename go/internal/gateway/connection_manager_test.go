package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func newBareConnection(cm *ConnectionManager, id string) *Connection {
	return &Connection{
		ID:      id,
		Send:    make(chan []byte, 16),
		Manager: cm,
		games:   make(map[string]bool),
	}
}

func TestConnectionManager_JoinRefusedAfterTeardown(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := newBareConnection(cm, "conn-1")

	cm.disconnect(conn)

	require.False(t, cm.JoinGame(conn, "game-1"), "a torn-down connection must not re-enter a room")

	totalConnections, activeGames := cm.Stats()
	require.Zero(t, totalConnections, "disconnected connection must not remain in any room")
	require.Zero(t, activeGames)
}

func TestConnectionManager_JoinThenTeardownEmptiesRoom(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := newBareConnection(cm, "conn-1")

	require.True(t, cm.JoinGame(conn, "game-1"))
	cm.disconnect(conn)

	totalConnections, activeGames := cm.Stats()
	require.Zero(t, totalConnections)
	require.Zero(t, activeGames)
}

func TestRouter_JoinFromTornDownConnectionLeavesNoSession(t *testing.T) {
	service := NewService(DefaultConfig(), clockwork.NewFakeClock(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go service.Start(ctx)

	conn := newBareConnection(service.connectionManager, "conn-1")
	service.connectionManager.disconnect(conn)

	// Replay the frame the read pump would have been mid-way through when
	// the teardown ran.
	data, err := json.Marshal(JoinGamePayload{GameID: "game-1", Role: "defuser"})
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Event: EventJoinGame, Data: data})
	require.NoError(t, err)
	service.router.HandleMessage(conn, frame)

	require.Equal(t, 0, service.Registry().Len(),
		"a join racing a disconnect must not leave a session ticking with a stranded member")
	_, activeGames := service.connectionManager.Stats()
	require.Zero(t, activeGames)
}
