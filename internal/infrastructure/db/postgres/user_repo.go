package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const pgUniqueViolation = "23505"

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

func (r *UserRepo) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1;`

	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// ---------- auth.UserStore ----------

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.findOne(ctx, "email = $1", email)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	return r.findOne(ctx, "id = $1", id)
}

// FindByVerificationToken never matches rows whose token is NULL.
func (r *UserRepo) FindByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.findOne(ctx, "email_verification_token = $1", token)
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	const q = `
INSERT INTO users (id, email, password_hash, email_verified, created_at)
VALUES ($1,$2,$3,FALSE,$4)
RETURNING ` + userColumns + `;
`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, u.ID, u.Email, u.PasswordHash, u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

func (r *UserRepo) SetVerificationToken(ctx context.Context, userID, token string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if strings.TrimSpace(token) == "" {
		return domain.ErrMissingField("email_verification_token")
	}

	const q = `
UPDATE users
SET email_verification_token = $2
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, userID, token)
	if err != nil {
		if isUniqueViolation(err, "users_email_verification_token_key") {
			return domain.ErrInvalidField("email_verification_token", "already in use")
		}
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// MarkEmailVerified is a conditional update: only the first caller flips the
// flag and dates it. Later callers get changed=false.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, domain.ErrMissingField("user_id")
	}

	const q = `
UPDATE users
SET email_verified = TRUE,
    email_verification_date = $2
WHERE id = $1 AND email_verified = FALSE;
`
	res, err := r.db.ExecContext(ctx, q, userID, at.UTC())
	if err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	return n == 1, nil
}
