package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const userColumns = `id, email, password_hash, email_verification_token, email_verified, email_verification_date, created_at`

type userRow struct {
	ID                     string
	Email                  string
	PasswordHash           string
	EmailVerificationToken sql.NullString
	EmailVerified          bool
	EmailVerificationDate  sql.NullTime
	CreatedAt              time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Email,
		&ur.PasswordHash,
		&ur.EmailVerificationToken,
		&ur.EmailVerified,
		&ur.EmailVerificationDate,
		&ur.CreatedAt,
	)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	u := domain.User{
		ID:            ur.ID,
		Email:         ur.Email,
		PasswordHash:  ur.PasswordHash,
		EmailVerified: ur.EmailVerified,
		CreatedAt:     ur.CreatedAt.UTC(),
	}
	if ur.EmailVerificationToken.Valid {
		tok := ur.EmailVerificationToken.String
		u.EmailVerificationToken = &tok
	}
	if ur.EmailVerificationDate.Valid {
		at := ur.EmailVerificationDate.Time.UTC()
		u.EmailVerificationDate = &at
	}
	return u
}
