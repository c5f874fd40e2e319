package storage

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

// SessionStore keeps studio sessions in memory. State is lost on restart.
type SessionStore struct {
	sessions map[string]*studio.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*studio.Session),
	}
}

// Create stores a new session built by newSession under a fresh id
func (s *SessionStore) Create(newSession func(id string) *studio.Session) *studio.Session {
	session := newSession(uuid.NewString())
	s.Set(session.ID, session)
	return session
}

func (s *SessionStore) Get(sessionID string) (*studio.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *studio.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

// GetAll returns the sessions oldest first
func (s *SessionStore) GetAll() []*studio.Session {
	s.mu.RLock()
	result := make([]*studio.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b *studio.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return exists
}
