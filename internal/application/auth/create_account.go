package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// CreationStage records how far account creation got. Creation is not
// transactional: every stage reached stays reached even if a later one fails.
type CreationStage string

const (
	StageNone               CreationStage = "none"
	StageRecordCreated      CreationStage = "record_created"
	StageSessionEstablished CreationStage = "session_established"
	StageTokenIssued        CreationStage = "token_issued"
	StageNotified           CreationStage = "notified"
)

type CreateAccountResult struct {
	User      domain.User
	SessionID string
	Stage     CreationStage
	// NotifyErr is set when the verification email could not be dispatched.
	// The account and session are still valid in that case.
	NotifyErr error
}

// CreateAccount registers email/password, logs the new user in, issues the
// verification token and asks for the verification email.
//
// The result is meaningful even when err != nil: Stage and the populated
// fields tell the caller what already exists.
//   - invalid_credentials / email_already_exists: nothing was written
//   - session_unavailable: record exists, nobody is logged in
//   - persist_failed: record and session exist, no verification token
//
// A notifier failure is not an error; it is reported through NotifyErr.
func (s *Service) CreateAccount(ctx context.Context, email, password, previousSessionID string) (CreateAccountResult, error) {
	res := CreateAccountResult{Stage: StageNone}
	email = domain.NormalizeEmail(email)

	if err := s.policy.Check(email, password); err != nil {
		return res, err
	}

	// Early duplicate check; the store's unique index is what actually
	// serializes concurrent registrations.
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return res, domain.ErrEmailAlreadyExists()
	} else if !domain.Is(err, domain.CodeUserNotFound) {
		return res, asDBUnavailable(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return res, domain.ErrHashFailed(err)
	}

	created, err := s.users.Create(ctx, domain.User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: false,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		if domain.Is(err, domain.CodeEmailAlreadyExists) {
			return res, err
		}
		return res, domain.ErrPersistFailed(err)
	}
	res.User = created
	res.Stage = StageRecordCreated
	s.audit.AccountCreated(ctx, created.ID, created.Email)

	sid, err := s.sessions.Establish(ctx, previousSessionID, created)
	if err != nil {
		return res, err
	}
	res.SessionID = sid
	res.Stage = StageSessionEstablished

	token, err := s.tokens.NewToken()
	if err != nil {
		return res, domain.ErrRandomFailed(err)
	}
	if err := s.users.SetVerificationToken(ctx, created.ID, token); err != nil {
		return res, domain.ErrPersistFailed(err)
	}
	res.User.EmailVerificationToken = &token
	res.Stage = StageTokenIssued

	evt := VerifyEmailEvent{
		UserID: created.ID,
		Email:  created.Email,
		URL:    s.verifyEmailBaseURL + token,
	}
	if err := s.notifier.PublishVerifyEmail(ctx, evt); err != nil {
		res.NotifyErr = domain.ErrNotifyFailed(err)
		logger.WithCtx(ctx).Warn().Err(err).
			Str("user_id", created.ID).
			Msg("verify_email_dispatch_failed")
		return res, nil
	}
	res.Stage = StageNotified
	return res, nil
}

func asDBUnavailable(err error) error {
	if domain.Is(err, domain.CodeDBUnavailable) {
		return err
	}
	return domain.ErrDBUnavailable(err)
}
