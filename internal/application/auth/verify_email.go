package auth

import (
	"context"
	"net/url"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type VerificationResult struct {
	Outcome domain.VerificationOutcome
	// User is zero for NotFound.
	User domain.User
	// Destination is where the caller should be redirected.
	Destination string
}

// VerifyEmail consumes a verification token.
//
// Unknown tokens and records that never got a token both come back as
// NotFound. Verifying twice is harmless: the second call reports
// AlreadyVerified and leaves the verification date untouched.
func (s *Service) VerifyEmail(ctx context.Context, token, callerSessionID string) (VerificationResult, error) {
	res := VerificationResult{Outcome: domain.NotFound, Destination: PathHome}

	token = strings.TrimSpace(token)
	if token == "" {
		return res, nil
	}

	u, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return res, nil
		}
		return res, asDBUnavailable(err)
	}
	res.User = u

	if u.EmailVerified {
		res.Outcome = domain.AlreadyVerified
		return res, nil
	}

	at := s.now().UTC()
	changed, err := s.users.MarkEmailVerified(ctx, u.ID, at)
	if err != nil {
		return res, domain.ErrPersistFailed(err)
	}
	if !changed {
		// lost a race with a concurrent verification
		res.Outcome = domain.AlreadyVerified
		res.User.EmailVerified = true
		return res, nil
	}

	res.Outcome = domain.Verified
	res.User.EmailVerified = true
	res.User.EmailVerificationDate = &at
	s.audit.EmailVerified(ctx, u.ID, u.Email)

	if _, ok := s.sessions.CurrentUser(ctx, callerSessionID); ok {
		res.Destination = s.accountHome
	} else {
		res.Destination = PathLogin + "?email=" + url.QueryEscape(u.Email)
	}
	return res, nil
}
