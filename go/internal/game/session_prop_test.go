package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestSession_TransitionInvariants drives random transition sequences and
// checks the terminal-state invariants after every step.
func TestSession_TransitionInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		modules := GenerateModules(rand.New(rand.NewSource(seed)))
		total := len(modules)
		s := NewSession("game-prop", modules, clockwork.NewFakeClock(), &recordingBroadcaster{})
		defer s.Cancel()

		steps := rapid.IntRange(1, 500).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, fmt.Sprintf("op-%d", i)) {
			case 0:
				s.Tick()
			case 1:
				s.AddStrike()
			case 2:
				// Out-of-range ids exercise the unknown-module no-op
				id := fmt.Sprintf("module-%d", rapid.IntRange(0, total+1).Draw(rt, fmt.Sprintf("module-%d", i)))
				s.SolveModule(id)
			}

			snap := s.Snapshot()

			terminalCondition := snap.TimeRemaining <= 0 || snap.Strikes >= MaxStrikes || snap.Solved == total
			if snap.GameOver != terminalCondition {
				rt.Fatalf("terminal flag %v disagrees with state %+v", snap.GameOver, snap)
			}
			if snap.Winner && snap.Solved != total {
				rt.Fatalf("won without solving everything: %+v", snap)
			}
			if snap.Strikes > MaxStrikes {
				rt.Fatalf("strikes exceeded limit: %+v", snap)
			}
			if snap.TimeRemaining < 0 || snap.TimeRemaining > InitialTimeSeconds {
				rt.Fatalf("time out of range: %+v", snap)
			}
			if snap.Solved < 0 || snap.Solved > total {
				rt.Fatalf("solved count out of range: %+v", snap)
			}
		}
	})
}

// TestSession_TerminalStateIsStable verifies that once a session goes
// terminal, no further transition changes any counter.
func TestSession_TerminalStateIsStable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		modules := GenerateModules(rand.New(rand.NewSource(1)))
		s := NewSession("game-prop", modules, clockwork.NewFakeClock(), &recordingBroadcaster{})
		defer s.Cancel()

		// Force a terminal state via one of the three triggers
		switch rapid.IntRange(0, 2).Draw(rt, "trigger") {
		case 0:
			for i := 0; i < MaxStrikes; i++ {
				s.AddStrike()
			}
		case 1:
			for i := 0; i < InitialTimeSeconds; i++ {
				s.Tick()
			}
		case 2:
			for _, m := range modules {
				s.SolveModule(m.Meta().ID)
			}
		}

		before := s.Snapshot()
		require.True(t, before.GameOver)

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, fmt.Sprintf("op-%d", i)) {
			case 0:
				s.Tick()
			case 1:
				s.AddStrike()
			case 2:
				s.SolveModule("module-0")
			}
		}

		after := s.Snapshot()
		require.Equal(t, before.Strikes, after.Strikes)
		require.Equal(t, before.Solved, after.Solved)
		require.Equal(t, before.TimeRemaining, after.TimeRemaining)
		require.Equal(t, before.Winner, after.Winner)
	})
}
