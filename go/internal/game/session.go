package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// InitialTimeSeconds is the countdown every new bomb starts from.
	InitialTimeSeconds = 300
	// MaxStrikes is the number of recorded mistakes that loses the game.
	MaxStrikes = 3
)

// Broadcaster delivers a state payload to every connection currently joined
// to a session. Implementations must not block: session transitions invoke
// it while holding the session lock.
type Broadcaster interface {
	BroadcastState(sessionID string, payload any)
}

// Session owns the mutable state of one in-progress bomb. All transitions
// are serialized under mu; once the session is terminal every further
// transition is a no-op. The countdown goroutine is the only caller of Tick
// in production; tests drive Tick directly.
type Session struct {
	mu            sync.Mutex
	id            string
	timeRemaining int
	modules       []Module
	solved        int
	strikes       int
	gameOver      bool
	winner        bool
	players       map[string]Player

	clock       clockwork.Clock
	broadcaster Broadcaster

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSession builds a session around a generated module set. The countdown
// does not run until Start is called.
func NewSession(id string, modules []Module, clock clockwork.Clock, broadcaster Broadcaster) *Session {
	return &Session{
		id:            id,
		timeRemaining: InitialTimeSeconds,
		modules:       modules,
		players:       make(map[string]Player),
		clock:         clock,
		broadcaster:   broadcaster,
		stop:          make(chan struct{}),
	}
}

// Start launches the countdown goroutine.
func (s *Session) Start() {
	go s.runCountdown()
}

func (s *Session) runCountdown() {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.Chan():
			// A cancel may have raced the tick; never tick a session that
			// is already being torn down.
			select {
			case <-s.stop:
				return
			default:
			}
			s.Tick()
		}
	}
}

// Cancel stops the countdown. Safe to call any number of times from any
// goroutine; every terminal transition and the registry teardown path both
// route through it.
func (s *Session) Cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Tick advances the countdown by one second. On expiry the session is lost
// and the full snapshot goes out; otherwise only a timer update is sent so
// clients don't have other fields clobbered mid-merge.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gameOver {
		return
	}

	s.timeRemaining--
	if s.timeRemaining <= 0 {
		s.timeRemaining = 0
		s.terminateLocked(false)
		log.Info().Str("game_id", s.id).Msg("time expired, game lost")
		s.broadcaster.BroadcastState(s.id, s.snapshotLocked())
		return
	}

	s.broadcaster.BroadcastState(s.id, TimerUpdate{
		GameID:        s.id,
		TimeRemaining: s.timeRemaining,
		Type:          PayloadTypeTimerUpdate,
	})
}

// SolveModule marks a module solved. Unknown ids, already-solved modules and
// terminal sessions are all silent no-ops with no broadcast.
func (s *Session) SolveModule(moduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gameOver {
		return
	}

	var meta *ModuleMeta
	for _, m := range s.modules {
		if m.Meta().ID == moduleID {
			meta = m.Meta()
			break
		}
	}
	if meta == nil || meta.Solved {
		return
	}

	meta.Solved = true
	s.solved++

	if s.solved == len(s.modules) {
		s.terminateLocked(true)
		log.Info().Str("game_id", s.id).Msg("all modules solved, game won")
	}

	s.broadcaster.BroadcastState(s.id, s.snapshotLocked())
}

// AddStrike records one mistake; the third ends the game in a loss.
func (s *Session) AddStrike() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gameOver {
		return
	}

	s.strikes++
	if s.strikes >= MaxStrikes {
		s.terminateLocked(false)
		log.Info().Str("game_id", s.id).Int("strikes", s.strikes).Msg("strike limit reached, game lost")
	}

	s.broadcaster.BroadcastState(s.id, s.snapshotLocked())
}

// terminateLocked flips the session terminal and cancels the countdown.
// Callers must hold mu.
func (s *Session) terminateLocked(winner bool) {
	s.gameOver = true
	s.winner = winner
	s.Cancel()
}

// Join registers a connection under the given role and returns the initial
// full snapshot tagged with that role. Duplicate roles and joins to an
// already-terminal session are accepted.
func (s *Session) Join(connID, role string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[connID] = Player{ID: connID, Role: role}

	snap := s.snapshotLocked()
	snap.Role = role
	snap.Type = PayloadTypeFullUpdate
	return snap
}

// Leave removes a connection's membership and reports whether the session is
// now empty.
func (s *Session) Leave(connID string) (empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.players, connID)
	return len(s.players) == 0
}

// Snapshot returns the current full state view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	players := make(map[string]Player, len(s.players))
	for id, p := range s.players {
		players[id] = p
	}

	modules := make([]ModulePayload, 0, len(s.modules))
	for _, m := range s.modules {
		modules = append(modules, modulePayload(m))
	}

	return Snapshot{
		GameID:        s.id,
		Players:       players,
		TimeRemaining: s.timeRemaining,
		Modules:       modules,
		Solved:        s.solved,
		Strikes:       s.strikes,
		GameOver:      s.gameOver,
		Winner:        s.winner,
	}
}
