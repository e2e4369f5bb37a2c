package auth

import "context"

// Logout destroys the caller's session. It always succeeds; the return value
// only tells whether someone was logged in beforehand.
func (s *Service) Logout(ctx context.Context, sessionID string) bool {
	u, had := s.sessions.CurrentUser(ctx, sessionID)
	s.sessions.Destroy(ctx, sessionID)
	if had {
		s.audit.Logout(ctx, u.ID)
	}
	return had
}
