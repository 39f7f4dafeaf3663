package game

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(broadcaster Broadcaster) (*Registry, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewRegistry(clock, broadcaster, 1), clock
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})

	s1, created := r.GetOrCreate("game-1")
	require.True(t, created)
	require.NotNil(t, s1)

	s2, created := r.GetOrCreate("game-1")
	require.False(t, created)
	require.Same(t, s1, s2)

	require.Equal(t, 1, r.Len())
}

func TestRegistry_GetOrCreate_ConcurrentSingleCreation(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})

	var wg sync.WaitGroup
	sessions := make([]*Session, 50)
	createdCount := make([]bool, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], createdCount[i] = r.GetOrCreate("game-1")
		}(i)
	}
	wg.Wait()

	creations := 0
	for i := 1; i < 50; i++ {
		require.Same(t, sessions[0], sessions[i], "every caller must see the same session")
	}
	for _, c := range createdCount {
		if c {
			creations++
		}
	}
	require.Equal(t, 1, creations, "exactly one caller creates the session")
	require.Equal(t, 1, r.Len())
}

func TestRegistry_JoinCreatesAndRegistersMembership(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})

	snap := r.Join("game-1", "conn-a", "defuser")

	require.Equal(t, "defuser", snap.Role)
	require.Contains(t, snap.Players, "conn-a")
	require.Equal(t, 1, r.Len())
	require.Contains(t, r.Get("game-1").Snapshot().Players, "conn-a")
}

func TestRegistry_JoinAfterRemovalGetsFreshRegisteredSession(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})

	r.Join("game-1", "conn-a", "defuser")
	require.True(t, r.Leave("game-1", "conn-a"))
	require.Equal(t, 0, r.Len())

	// The next joiner must land on a session that occupies a registry slot,
	// not on the removed one.
	snap := r.Join("game-1", "conn-b", "manual")

	s := r.Get("game-1")
	require.NotNil(t, s)
	require.Contains(t, s.Snapshot().Players, "conn-b")
	require.Contains(t, snap.Players, "conn-b")
	require.Equal(t, 1, r.Len())
}

func TestRegistry_ConcurrentJoinLeaveNeverStrandsMembership(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := "conn-" + strconv.Itoa(i)
			r.Join("game-1", connID, "defuser")
			r.Leave("game-1", connID)
		}(i)
	}
	wg.Wait()

	// Every joiner also left, so no session may survive: a member stranded
	// on a removed session would leave a non-empty session behind here.
	require.Equal(t, 0, r.Len())
}

func TestRegistry_Get_UnknownReturnsNil(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})
	require.Nil(t, r.Get("nope"))
}

func TestRegistry_LeaveRemovesEmptySession(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})

	s, _ := r.GetOrCreate("game-1")
	s.Join("conn-1", "defuser")
	s.Join("conn-2", "manual")

	require.False(t, r.Leave("game-1", "conn-1"), "session keeps living while members remain")
	require.Equal(t, 1, r.Len())

	require.True(t, r.Leave("game-1", "conn-2"))
	require.Equal(t, 0, r.Len())
	require.Nil(t, r.Get("game-1"))
}

func TestRegistry_LeaveUnknownSessionIsNoOp(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})
	require.False(t, r.Leave("nope", "conn-1"))
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(&recordingBroadcaster{})

	r.GetOrCreate("game-1")
	r.Remove("game-1")
	r.Remove("game-1")
	require.Equal(t, 0, r.Len())
}

func TestRegistry_RemovedSessionStopsTicking(t *testing.T) {
	broadcaster := &recordingBroadcaster{notify: make(chan any, 16)}
	r, clock := newTestRegistry(broadcaster)

	s, _ := r.GetOrCreate("game-1")
	s.Join("conn-1", "defuser")
	clock.BlockUntil(1)

	require.True(t, r.Leave("game-1", "conn-1"))

	clock.Advance(time.Second)
	select {
	case payload := <-broadcaster.notify:
		t.Fatalf("tick observed after session removal: %#v", payload)
	case <-time.After(100 * time.Millisecond):
	}
}
