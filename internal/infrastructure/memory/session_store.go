package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// sessionEntry holds the user ID and expiration time for a session
type sessionEntry struct {
	userID    string
	expiresAt time.Time
}

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	sid, err := newOpaqueToken(32)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sid] = sessionEntry{
		userID:    userID,
		expiresAt: s.now().Add(ttl),
	}
	return sid, nil
}

// Resolve returns "" for unknown or expired sessions.
func (s *SessionStore) Resolve(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return "", nil
	}
	if s.now().After(entry.expiresAt) {
		_ = s.Delete(ctx, sessionID)
		return "", nil
	}
	return entry.userID, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID) // idempotent
	return nil
}
