package http_handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/flash"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/intent"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
)

// capturePublisher records verification requests instead of publishing them.
type capturePublisher struct {
	mu     sync.Mutex
	events []auth.VerifyEmailEvent
	err    error
}

func (p *capturePublisher) PublishVerifyEmail(_ context.Context, evt auth.VerifyEmailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) last(t *testing.T) auth.VerifyEmailEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		t.Fatalf("expected a verification event")
	}
	return p.events[len(p.events)-1]
}

// flakySessions fails Create on demand.
type flakySessions struct {
	*memory.SessionStore
	failCreate bool
}

func (f *flakySessions) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if f.failCreate {
		return "", errors.New("session store down")
	}
	return f.SessionStore.Create(ctx, userID, ttl)
}

type testEnv struct {
	users    *memory.UserRepo
	sessions *flakySessions
	pub      *capturePublisher
	svc      *auth.Service
	srv      *httptest.Server
	client   *http.Client
}

const testBaseURL = "http://app.test"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    memory.NewUserRepo(),
		sessions: &flakySessions{SessionStore: memory.NewSessionStore()},
		pub:      &capturePublisher{},
	}
	env.svc = auth.NewService(
		env.users,
		security.NewBcryptHasher(bcrypt.MinCost),
		security.NewTokenGenerator(32),
		env.sessions,
		env.pub,
		auth.Config{PublicBaseURL: testBaseURL, SessionTTL: time.Hour},
	)

	intents := intent.New(false)
	h := NewAccountHandler(env.svc, intents, flash.New(false), false)

	r := chi.NewRouter()
	r.Use(middleware.LoadSession(env.svc.Sessions()))
	r.Get("/", h.Home)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/create-account", h.CreateAccountPage)
	r.Post("/create-account", h.CreateAccount)
	r.Get("/verify-email/{token}", h.VerifyEmail)
	r.Get("/logout", h.Logout)
	r.With(middleware.RequireSession(intents, auth.PathLogin)).Get("/account", h.Account)

	env.srv = httptest.NewServer(r)
	t.Cleanup(env.srv.Close)

	env.client = newBrowser(t)
	return env
}

// newBrowser returns a client with its own cookie jar that does not follow
// redirects, so tests can assert on each 303.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	res, err := e.client.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	res, err := e.client.Post(e.srv.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (e *testEnv) login(t *testing.T, email, password string) *http.Response {
	t.Helper()
	return e.post(t, "/login", url.Values{"email": {email}, "password": {password}})
}

func (e *testEnv) createAccount(t *testing.T, email, password string) *http.Response {
	t.Helper()
	return e.post(t, "/create-account", url.Values{"email": {email}, "password": {password}})
}

// page follows a redirect target and decodes the page view behind it.
func (e *testEnv) page(t *testing.T, path string) dto.PageView {
	t.Helper()
	res := e.get(t, path)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, res.StatusCode)
	}
	var env struct {
		Data dto.PageView `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return env.Data
}

func (e *testEnv) setCookie(t *testing.T, c *http.Cookie) {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	e.client.Jar.SetCookies(u, []*http.Cookie{c})
}

func mustSeeOther(t *testing.T, res *http.Response, wantLocation string) {
	t.Helper()
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.StatusCode)
	}
	if got := res.Header.Get("Location"); got != wantLocation {
		t.Fatalf("expected Location %q, got %q", wantLocation, got)
	}
}

func mustFlash(t *testing.T, v dto.PageView, kind flash.Kind, msg string) {
	t.Helper()
	if v.Flash == nil {
		t.Fatalf("expected flash %q, got none", msg)
	}
	if v.Flash.Kind != kind || v.Flash.Message != msg {
		t.Fatalf("expected flash %s/%q, got %s/%q", kind, msg, v.Flash.Kind, v.Flash.Message)
	}
}

func tokenFromURL(t *testing.T, verifyURL string) string {
	t.Helper()
	prefix := testBaseURL + auth.PathVerifyEmail
	if !strings.HasPrefix(verifyURL, prefix) {
		t.Fatalf("unexpected verification url %q", verifyURL)
	}
	return strings.TrimPrefix(verifyURL, prefix)
}
