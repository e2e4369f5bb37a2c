package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AccountHandler interface {
	Home(w http.ResponseWriter, r *http.Request)
	LoginPage(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	CreateAccountPage(w http.ResponseWriter, r *http.Request)
	CreateAccount(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Account(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health  HealthHandler
	Account AccountHandler

	RequestIDMW func(http.Handler) http.Handler
	// SessionMW resolves the session cookie for every account route.
	SessionMW func(http.Handler) http.Handler
	// RequireSessionMW guards pages that need a logged-in user.
	RequireSessionMW func(http.Handler) http.Handler

	// Optional.
	MetricsMW       func(http.Handler) http.Handler
	MetricsHandler  http.Handler
	CSRFMW          func(http.Handler) http.Handler
	RLLogin         func(http.Handler) http.Handler
	RLCreateAccount func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Account == nil {
		return nil, fmt.Errorf("nil Account handler")
	}
	if deps.RequestIDMW == nil {
		return nil, fmt.Errorf("nil RequestID middleware")
	}
	if deps.SessionMW == nil {
		return nil, fmt.Errorf("nil Session middleware")
	}
	if deps.RequireSessionMW == nil {
		return nil, fmt.Errorf("nil RequireSession middleware")
	}

	r := chi.NewRouter()
	r.Use(deps.RequestIDMW)
	if deps.MetricsMW != nil {
		r.Use(deps.MetricsMW)
	}
	// after Use so fallbacks carry the request id
	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.SessionMW)
		if deps.CSRFMW != nil {
			r.Use(deps.CSRFMW)
		}

		r.Get("/", deps.Account.Home)

		r.Get("/login", deps.Account.LoginPage)
		r.With(optional(deps.RLLogin)...).Post("/login", deps.Account.Login)

		r.Get("/create-account", deps.Account.CreateAccountPage)
		r.With(optional(deps.RLCreateAccount)...).Post("/create-account", deps.Account.CreateAccount)

		r.Get("/verify-email/{token}", deps.Account.VerifyEmail)
		r.Get("/logout", deps.Account.Logout)

		r.With(deps.RequireSessionMW).Get("/account", deps.Account.Account)
	})

	return r, nil
}

func optional(mws ...func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}
