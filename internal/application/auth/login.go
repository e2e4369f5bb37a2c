package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type LoginResult struct {
	User      domain.User
	SessionID string
}

// Login authenticates a user and establishes a session.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
func (s *Service) Login(ctx context.Context, email, password, previousSessionID string) (LoginResult, error) {
	email = domain.NormalizeEmail(email)

	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !domain.Is(err, domain.CodeUserNotFound) {
			return LoginResult{}, asDBUnavailable(err)
		}
		// Spend the same bcrypt time as a real comparison.
		if s.dummyHash != "" {
			_ = s.hasher.Compare(s.dummyHash, password)
		}
		s.audit.LoginFailed(ctx, email, "unknown_email")
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		s.audit.LoginFailed(ctx, email, "bad_password")
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	sid, err := s.sessions.Establish(ctx, previousSessionID, u)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit.LoginSuccess(ctx, u.ID, u.Email)
	return LoginResult{User: u, SessionID: sid}, nil
}
