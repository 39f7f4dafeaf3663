package game

import (
	"math/rand"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Registry is the process-wide map from game id to live session. It is the
// only state shared across connections; each session's internals are guarded
// by the session's own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	clock       clockwork.Clock
	broadcaster Broadcaster
	rng         *rand.Rand // guarded by mu, used only during creation
}

// NewRegistry creates an empty registry. seed feeds module generation;
// production callers pass the wall clock's current nanos.
func NewRegistry(clock clockwork.Clock, broadcaster Broadcaster, seed int64) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		clock:       clock,
		broadcaster: broadcaster,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// GetOrCreate returns the session for id, constructing and starting a new
// one on first join. Concurrent calls for the same id are serialized so
// exactly one session is ever created per id.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock; another join may have won the race.
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	return r.createLocked(id), true
}

// Join resolves or creates the session for sessionID and registers connID
// under role, all inside the registry's critical section. Resolving and
// joining atomically means a concurrent last-member removal can never strand
// the joiner on a session that has already left the map.
func (r *Registry) Join(sessionID, connID, role string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		s = r.createLocked(sessionID)
	}
	return s.Join(connID, role)
}

func (r *Registry) createLocked(id string) *Session {
	s := NewSession(id, GenerateModules(r.rng), r.clock, r.broadcaster)
	r.sessions[id] = s
	s.Start()

	log.Info().Str("game_id", id).Msg("game created")
	return s
}

// Get returns the session for id, or nil when no such game exists.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Leave drops connID from the session's membership and tears the session
// down when it was the last member. The countdown is cancelled before the
// session leaves the map so no tick can fire against a discarded game.
// Reports whether the session was removed.
func (r *Registry) Leave(sessionID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	if !s.Leave(connID) {
		return false
	}

	r.removeLocked(sessionID, s)
	return true
}

// Remove detaches and discards a session, cancelling its countdown. Intended
// for teardown of an already-empty session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		r.removeLocked(id, s)
	}
}

func (r *Registry) removeLocked(id string, s *Session) {
	s.Cancel()
	delete(r.sessions, id)
	log.Info().Str("game_id", id).Msg("game cleaned up")
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
