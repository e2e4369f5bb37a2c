package auth

import (
	"context"
	"strings"
	"time"
)

// Auditor receives business events; implementations must not block.
type Auditor interface {
	AccountCreated(ctx context.Context, userID, email string)
	LoginSuccess(ctx context.Context, userID, email string)
	LoginFailed(ctx context.Context, email, reason string)
	EmailVerified(ctx context.Context, userID, email string)
	Logout(ctx context.Context, userID string)
}

type noopAuditor struct{}

func (noopAuditor) AccountCreated(context.Context, string, string) {}
func (noopAuditor) LoginSuccess(context.Context, string, string)   {}
func (noopAuditor) LoginFailed(context.Context, string, string)    {}
func (noopAuditor) EmailVerified(context.Context, string, string)  {}
func (noopAuditor) Logout(context.Context, string)                 {}

type Service struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenGenerator
	sessions *Sessions
	notifier Notifier
	now      Clock
	policy   *credentialPolicy

	audit Auditor

	// verifyEmailBaseURL is joined with the token, e.g. https://app/verify-email/
	verifyEmailBaseURL string
	accountHome        string
	// dummyHash keeps login timing flat for unknown emails.
	dummyHash string
}

type Config struct {
	// PublicBaseURL is the externally visible origin, e.g. https://app.example.com
	PublicBaseURL string
	// AccountHome is where authenticated users land by default.
	AccountHome string
	SessionTTL  time.Duration
}

const (
	PathHome           = "/"
	PathLogin          = "/login"
	PathCreateAccount  = "/create-account"
	PathVerifyEmail    = "/verify-email/"
	DefaultAccountHome = "/account"
)

func NewService(
	users UserStore,
	hasher PasswordHasher,
	tokens TokenGenerator,
	sessions SessionStore,
	notifier Notifier,
	cfg Config,
) *Service {
	home := cfg.AccountHome
	if home == "" {
		home = DefaultAccountHome
	}
	s := &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		now:      time.Now,
		audit:    noopAuditor{},
		policy:   newCredentialPolicy(),

		verifyEmailBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/") + PathVerifyEmail,
		accountHome:        home,
	}
	s.sessions = NewSessions(sessions, users, cfg.SessionTTL)

	// A failure here only weakens timing equalization; login still works.
	if h, err := hasher.Hash("account-service/dummy-password"); err == nil {
		s.dummyHash = h
	}
	return s
}

func (s *Service) WithAudit(a Auditor) *Service {
	if a != nil {
		s.audit = a
	}
	return s
}

func (s *Service) WithClock(now Clock) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Sessions exposes the session manager to transports.
func (s *Service) Sessions() *Sessions { return s.sessions }

// AccountHome is the default post-login destination.
func (s *Service) AccountHome() string { return s.accountHome }
