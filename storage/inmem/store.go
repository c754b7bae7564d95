package inmemstore

import (
	"sync"

	"github.com/edulive/classpulse/core/session"
)

// Store keeps the snapshot in memory; used by tests and as the last-resort
// fallback backend.
type Store struct {
	mu    sync.RWMutex
	state session.State
	ok    bool

	SaveErr error // when set, Save fails with it (tests)
	LoadErr error // when set, Load fails with it (tests)
}

var _ session.SnapshotStore = (*Store)(nil) // interface compliance check

func New() *Store {
	return &Store{}
}

// Seed pre-populates the slot (tests).
func Seed(state session.State) *Store {
	return &Store{state: state, ok: true}
}

func (s *Store) Load() (session.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.LoadErr != nil {
		return session.State{}, false, s.LoadErr
	}
	return s.state, s.ok, nil
}

func (s *Store) Save(state session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.state = state
	s.ok = true
	return nil
}
