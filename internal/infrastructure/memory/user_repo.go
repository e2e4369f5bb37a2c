package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// UserRepo is the in-memory credential store used in dev and tests. It keeps
// the same uniqueness guarantees as the Postgres schema: one record per email
// and one record per verification token.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // email -> userID
	byToken map[string]string // verification token -> userID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
		byToken: make(map[string]string),
	}
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) FindByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byToken[token]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	if u.HasVerificationToken() {
		r.byToken[*u.EmailVerificationToken] = u.ID
	}
	return u, nil
}

func (r *UserRepo) SetVerificationToken(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if owner, taken := r.byToken[token]; taken && owner != userID {
		return domain.ErrInvalidField("email_verification_token", "already in use")
	}
	if u.HasVerificationToken() {
		delete(r.byToken, *u.EmailVerificationToken)
	}

	t := token
	u.EmailVerificationToken = &t
	r.byID[userID] = u
	r.byToken[token] = userID
	return nil
}

// MarkEmailVerified flips the flag and dates it, only if it was not set yet.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return false, domain.ErrUserNotFound()
	}
	if u.EmailVerified {
		return false, nil
	}

	u.EmailVerified = true
	u.EmailVerificationDate = &at
	r.byID[userID] = u
	return true, nil
}
