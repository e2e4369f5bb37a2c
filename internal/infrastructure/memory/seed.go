package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

// SeedUsers creates initial users for local development (in-memory only).
// Safe to call multiple times (duplicates ignored).
func SeedUsers(ctx context.Context, users *UserRepo, hasher Hasher) {
	type seedUser struct {
		Email    string
		Pass     string
		Verified bool
	}

	seeds := []seedUser{
		{Email: "verified@example.com", Pass: "VerifiedPassword123!", Verified: true},
		{Email: "pending@example.com", Pass: "PendingPassword123!"},
	}

	now := time.Now().UTC()
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("email", s.Email).Msg("seed_hash_failed")
			continue
		}

		u := domain.User{
			ID:            uuid.NewString(),
			Email:         s.Email,
			PasswordHash:  hash,
			EmailVerified: s.Verified,
			CreatedAt:     now,
		}
		if s.Verified {
			u.EmailVerificationDate = &now
		}

		if _, err := users.Create(ctx, u); err != nil {
			// ignore duplicates / restart
			continue
		}
	}

	logger.Logger.Info().Int("count", len(seeds)).Msg("seed_memory_users")
}
