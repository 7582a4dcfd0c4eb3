// Package storage keeps live wizard sessions in process memory. Sessions are
// per-tab and ephemeral; nothing here survives a restart (the quota record is
// the only durable state, and it lives elsewhere).
package storage

import (
	"sync"

	"github.com/pawtrait-studio/pawtrait/internal/wizard"
)

type SessionStore struct {
	sessions map[string]*wizard.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*wizard.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*wizard.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *wizard.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

func (s *SessionStore) GetAll() map[string]*wizard.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*wizard.Session, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
