package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	pkgctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

// Logger provides structured audit logging for account business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// AccountCreated logs a new registration
func (l *Logger) AccountCreated(ctx context.Context, userID, email string) {
	l.log.Info().
		Str("action", "account_created").
		Str("user_id", userID).
		Str("email", maskEmail(email)).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Account created")
}

// LoginSuccess logs a successful login
func (l *Logger) LoginSuccess(ctx context.Context, userID, email string) {
	l.log.Info().
		Str("action", "login_success").
		Str("user_id", userID).
		Str("email", maskEmail(email)).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("User logged in successfully")
}

// LoginFailed logs a failed login attempt
func (l *Logger) LoginFailed(ctx context.Context, email, reason string) {
	l.log.Warn().
		Str("action", "login_failed").
		Str("email", maskEmail(email)).
		Str("reason", reason).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Login attempt failed")
}

// EmailVerified logs when email is verified
func (l *Logger) EmailVerified(ctx context.Context, userID, email string) {
	l.log.Info().
		Str("action", "email_verified").
		Str("user_id", userID).
		Str("email", maskEmail(email)).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("Email verified")
}

// Logout logs a user logout
func (l *Logger) Logout(ctx context.Context, userID string) {
	l.log.Info().
		Str("action", "logout").
		Str("user_id", userID).
		Str("request_id", pkgctx.GetRequestID(ctx)).
		Msg("User logged out")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
