package session

import (
	"sync"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
)

// Session holds the workflow position and booking draft for one user.
// Sessions live only in process memory and are never persisted.
type Session struct {
	// mu serializes message processing for this user; distinct users'
	// sessions are processed independently.
	mu sync.Mutex

	UserID int64
	Step   domain.Step
	Draft  *domain.Draft
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Reset puts the session back at the first step with an empty draft.
func (s *Session) Reset() {
	s.Step = domain.StepSelectBuilding
	s.Draft = &domain.Draft{}
}

// Store keeps per-user sessions, created on first contact and cleared on
// cancel, completion, or explicit reset.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// GetOrCreate returns the session for a user, creating it if absent.
func (st *Store) GetOrCreate(userID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[userID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userID]; ok {
		return s
	}
	s = &Session{UserID: userID}
	s.Reset()
	st.sessions[userID] = s
	return s
}

// Get returns the session for a user, nil if none exists.
func (st *Store) Get(userID int64) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[userID]
}

// Clear removes the session for a user.
func (st *Store) Clear(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
