package auth

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

const defaultSessionTTL = 24 * time.Hour

// Sessions is the session manager every handler consults to learn who is
// acting. The caller owns the session id (a cookie value) and passes it in
// explicitly; nothing here reads ambient request state.
type Sessions struct {
	store SessionStore
	users UserStore
	ttl   time.Duration
}

func NewSessions(store SessionStore, users UserStore, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{store: store, users: users, ttl: ttl}
}

// TTL is the lifetime given to new sessions.
func (m *Sessions) TTL() time.Duration { return m.ttl }

// CurrentUser resolves sessionID to its user. It never fails: any problem
// (unknown id, store outage, user gone) means anonymous.
func (m *Sessions) CurrentUser(ctx context.Context, sessionID string) (domain.User, bool) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.User{}, false
	}

	userID, err := m.store.Resolve(ctx, sessionID)
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Msg("session_resolve_failed")
		return domain.User{}, false
	}
	if userID == "" {
		return domain.User{}, false
	}

	u, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			// a session must resolve to an existing record
			_ = m.store.Delete(ctx, sessionID)
		} else {
			logger.WithCtx(ctx).Warn().Err(err).Str("user_id", userID).Msg("session_user_lookup_failed")
		}
		return domain.User{}, false
	}
	return u, true
}

// Establish binds a brand-new session to u and returns its id. Any previous
// session of the caller is dropped first so ids are never reused across logins.
func (m *Sessions) Establish(ctx context.Context, previousID string, u domain.User) (string, error) {
	if strings.TrimSpace(u.ID) == "" {
		return "", domain.ErrMissingField("user_id")
	}

	if previousID = strings.TrimSpace(previousID); previousID != "" {
		if err := m.store.Delete(ctx, previousID); err != nil {
			logger.WithCtx(ctx).Warn().Err(err).Msg("session_previous_delete_failed")
		}
	}

	sid, err := m.store.Create(ctx, u.ID, m.ttl)
	if err != nil {
		return "", domain.ErrSessionUnavailable(err)
	}
	return sid, nil
}

// Destroy ends the session. Unknown or empty ids are a no-op.
func (m *Sessions) Destroy(ctx context.Context, sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Msg("session_delete_failed")
	}
}
