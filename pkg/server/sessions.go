package server

import (
	"sync"

	"github.com/boralio/leadbot/pkg/model"
)

// session holds the server-side conversation history for one visitor. The
// mutex serializes turns within the session while leaving other sessions
// free to proceed concurrently.
type session struct {
	mu      sync.Mutex
	history []model.ConversationTurn
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[model.SessionID]*session),
	}
}

func (s *sessionStore) get(id model.SessionID) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[id] = sess
	return sess
}
