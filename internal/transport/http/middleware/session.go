package middleware

import (
	"context"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/intent"
)

// WriteErrFunc writes err to the client in whatever shape the route uses
// (redirect + flash for forms, JSON for ops endpoints).
type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

type SessionResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (domain.User, bool)
}

type ctxKey string

const (
	ctxUser      ctxKey = "session_user"
	ctxSessionID ctxKey = "session_id"
)

// WithUser records the session id and its user. A zero user means anonymous.
func WithUser(ctx context.Context, sessionID string, u domain.User) context.Context {
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	return context.WithValue(ctx, ctxUser, u)
}

// UserFromContext returns the logged-in user resolved by LoadSession.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxUser).(domain.User)
	return u, ok && u.ID != ""
}

// SessionIDFromContext returns the raw session cookie value, resolved or not.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxSessionID).(string)
	return v
}

// LoadSession resolves the session cookie once per request. Anonymous
// requests pass through with only the (possibly stale) session id recorded.
func LoadSession(res SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := security.ReadSession(r)
			var u domain.User
			if sid != "" {
				u, _ = res.CurrentUser(r.Context(), sid)
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), sid, u)))
		})
	}
}

// RequireSession bounces anonymous visitors to loginPath, remembering where
// they were headed so login can send them back.
func RequireSession(intents *intent.Cache, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method == http.MethodGet {
				intents.Remember(w, r.URL.RequestURI())
			}
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
		})
	}
}
