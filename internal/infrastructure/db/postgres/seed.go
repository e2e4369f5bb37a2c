package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) (bool, error)
}

// SeedUsers inserts one verified and one pending demo account for dev
// environments. Restart safe: duplicates are ignored.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher) {
	type seedUser struct {
		Email    string
		Pass     string
		Verified bool
	}

	seeds := []seedUser{
		{Email: "verified@example.com", Pass: "VerifiedPassword123!", Verified: true},
		{Email: "pending@example.com", Pass: "PendingPassword123!"},
	}

	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("email", s.Email).Msg("seed_hash_failed")
			continue
		}

		u, err := repo.Create(ctx, domain.User{
			ID:           uuid.NewString(),
			Email:        s.Email,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			// ignore duplicates (restart safe)
			continue
		}
		if s.Verified {
			if _, err := repo.MarkEmailVerified(ctx, u.ID, time.Now().UTC()); err != nil {
				logger.Logger.Warn().Err(err).Str("email", s.Email).Msg("seed_verify_failed")
			}
		}
		created++
	}

	logger.Logger.Info().Int("created", created).Msg("seed_postgres_users")
}
