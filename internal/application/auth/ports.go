package auth

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
UserStore
---------
Persistence port for user records (the credential store).
Only describes WHAT the account flows need, not HOW it's stored.

Lookups return domain.ErrUserNotFound() when nothing matches and
domain.ErrDBUnavailable(...) for storage failures; the two are never conflated.
*/
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindByVerificationToken(ctx context.Context, token string) (domain.User, error)

	// Create must enforce email uniqueness and return
	// domain.ErrEmailAlreadyExists() on a duplicate.
	Create(ctx context.Context, u domain.User) (domain.User, error)

	SetVerificationToken(ctx context.Context, userID, token string) error

	// MarkEmailVerified flips email_verified false->true and stamps the date
	// in one atomic update. It reports false when the record was already
	// verified, in which case nothing is written.
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) (bool, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt. The salt lives inside the returned hash.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenGenerator
--------------
Opaque, collision-resistant email verification tokens.
*/
type TokenGenerator interface {
	NewToken() (string, error)
}

/*
SessionStore
------------
Server-side sessions keyed by an opaque id handed to the client.
Backed by Redis or memory. Expiry is the store's concern.
*/
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (sessionID string, err error)
	// Resolve returns ("", nil) for unknown or expired sessions.
	Resolve(ctx context.Context, sessionID string) (userID string, err error)
	// Delete is idempotent.
	Delete(ctx context.Context, sessionID string) error
}

/*
Notifier
--------
Publishes the verification request; the email service delivers it.
Account-service does NOT send mail directly.
*/
type Notifier interface {
	PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error
}

type VerifyEmailEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	URL    string `json:"url"`
}

// Clock is swapped in tests.
type Clock func() time.Time
