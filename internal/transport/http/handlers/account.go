package http_handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/flash"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/intent"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

const (
	msgWelcome         = "Welcome!"
	msgAccountCreated  = "Account created"
	msgInvalidLink     = "Invalid verification link"
	msgAlreadyVerified = "Email already verified"
	msgEmailVerified   = "Email verified"
	msgSeeYou          = "See you next time"
	msgNotLoggedIn     = "You weren't logged in"
)

// AccountHandler serves the browser-facing account flows. Every POST and
// every state change answers with a 303; failures become a flash message
// on the page the user is sent back to.
type AccountHandler struct {
	svc     *auth.Service
	intents *intent.Cache
	flashes *flash.Store
	secure  bool
}

func NewAccountHandler(svc *auth.Service, intents *intent.Cache, flashes *flash.Store, secureCookies bool) *AccountHandler {
	return &AccountHandler{
		svc:     svc,
		intents: intents,
		flashes: flashes,
		secure:  secureCookies,
	}
}

// Home handles GET /
func (h *AccountHandler) Home(w http.ResponseWriter, r *http.Request) {
	view := dto.PageView{Title: "Home", Flash: h.flashes.Pop(w, r)}
	if u, ok := middleware.UserFromContext(r.Context()); ok {
		view.User = dto.NewUserView(u)
		view.SpecialMessage = fmt.Sprintf(
			`Hi %s, you're already logged in. <a href="%s">Go to your account</a>`,
			html.EscapeString(u.Email), h.svc.AccountHome(),
		)
	}
	response.OK(w, view)
}

// LoginPage handles GET /login
func (h *AccountHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	response.OK(w, dto.PageView{
		Title: "Log in",
		Email: dto.EmailHint(r),
		Flash: h.flashes.Pop(w, r),
	})
}

// Login handles POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := dto.ParseCredentialsForm(w, r)
	if err != nil {
		middleware.RecordLogin(domain.CodeInvalidField)
		h.back(w, r, auth.PathLogin, "", err)
		return
	}

	res, err := h.svc.Login(r.Context(), form.Email, form.Password, middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		middleware.RecordLogin(errorLabel(err))
		h.back(w, r, auth.PathLogin, form.Email, err)
		return
	}
	middleware.RecordLogin("success")

	security.SetSession(w, res.SessionID, h.svc.Sessions().TTL(), h.secure)
	dest := h.intents.Consume(w, r, h.svc.AccountHome())
	h.flashes.Info(w, msgWelcome)
	response.SeeOther(w, r, dest)
}

// CreateAccountPage handles GET /create-account
func (h *AccountHandler) CreateAccountPage(w http.ResponseWriter, r *http.Request) {
	response.OK(w, dto.PageView{
		Title: "Create account",
		Email: dto.EmailHint(r),
		Flash: h.flashes.Pop(w, r),
	})
}

// CreateAccount handles POST /create-account
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	form, err := dto.ParseCredentialsForm(w, r)
	if err != nil {
		middleware.RecordAccountCreation(domain.CodeInvalidField)
		h.back(w, r, auth.PathCreateAccount, "", err)
		return
	}

	res, err := h.svc.CreateAccount(r.Context(), form.Email, form.Password, middleware.SessionIDFromContext(r.Context()))
	if res.SessionID != "" {
		security.SetSession(w, res.SessionID, h.svc.Sessions().TTL(), h.secure)
	}

	switch {
	case err == nil:
		middleware.RecordAccountCreation(string(res.Stage))
		h.flashes.Info(w, msgAccountCreated)
		response.SeeOther(w, r, h.svc.AccountHome())

	case res.Stage == auth.StageNone:
		middleware.RecordAccountCreation(errorLabel(err))
		h.back(w, r, auth.PathCreateAccount, form.Email, err)

	case res.SessionID == "":
		// The account exists but nobody is logged in; send them to log in.
		middleware.RecordAccountCreation(errorLabel(err))
		h.back(w, r, auth.PathLogin, res.User.Email, err)

	default:
		// Logged in, but the verification token could not be issued.
		middleware.RecordAccountCreation(errorLabel(err))
		h.logFailure(r, err, "create_account_partial")
		h.flashes.Error(w, domain.MessageOf(err))
		response.SeeOther(w, r, h.svc.AccountHome())
	}
}

// VerifyEmail handles GET /verify-email/{token}
func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.VerifyEmail(r.Context(), chi.URLParam(r, "token"), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		middleware.RecordVerification("error")
		h.logFailure(r, err, "verify_email_failed")
		h.flashes.Error(w, domain.MessageOf(err))
		response.SeeOther(w, r, auth.PathHome)
		return
	}
	middleware.RecordVerification(string(res.Outcome))

	switch res.Outcome {
	case domain.Verified:
		h.flashes.Info(w, msgEmailVerified)
	case domain.AlreadyVerified:
		h.flashes.Info(w, msgAlreadyVerified)
	default:
		h.flashes.Error(w, msgInvalidLink)
	}
	response.SeeOther(w, r, res.Destination)
}

// Logout handles GET /logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionIDFromContext(r.Context())
	if h.svc.Logout(r.Context(), sid) {
		h.flashes.Info(w, msgSeeYou)
	} else {
		h.flashes.Info(w, msgNotLoggedIn)
	}
	if sid != "" {
		security.ClearSession(w, h.secure)
	}
	response.SeeOther(w, r, auth.PathHome)
}

// Account handles GET /account; RequireSession guarantees a user.
func (h *AccountHandler) Account(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.SeeOther(w, r, auth.PathLogin)
		return
	}
	response.OK(w, dto.PageView{
		Title: "Account",
		Flash: h.flashes.Pop(w, r),
		User:  dto.NewUserView(u),
	})
}

// WriteFormError is the rate limiter's failure path for form routes: send
// the user back to the page they posted from.
func (h *AccountHandler) WriteFormError(w http.ResponseWriter, r *http.Request, err error) {
	target := auth.PathHome
	switch r.URL.Path {
	case auth.PathLogin:
		target = auth.PathLogin
		middleware.RecordLogin(errorLabel(err))
	case auth.PathCreateAccount:
		target = auth.PathCreateAccount
		middleware.RecordAccountCreation(errorLabel(err))
	}
	h.back(w, r, target, "", err)
}

// back redirects to path (keeping the email hint) with err as the flash.
func (h *AccountHandler) back(w http.ResponseWriter, r *http.Request, path, email string, err error) {
	if domain.KindOf(err) == domain.KindInfrastructure || domain.KindOf(err) == domain.KindInternal {
		h.logFailure(r, err, "account_request_failed")
	}
	h.flashes.Error(w, domain.MessageOf(err))
	if email != "" {
		path += "?email=" + url.QueryEscape(email)
	}
	response.SeeOther(w, r, path)
}

func (h *AccountHandler) logFailure(r *http.Request, err error, msg string) {
	logger.WithCtx(r.Context()).Error().Err(err).
		Str("code", errorLabel(err)).
		Str("path", r.URL.Path).
		Msg(msg)
}

func errorLabel(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	return domain.CodeInternal
}
