package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
Fakes for ports
*/

type fakeUserStore struct {
	mu sync.Mutex

	byID map[string]domain.User

	// injected errors (if set, method returns error)
	findByEmailErr  error
	findByIDErr     error
	findByTokenErr  error
	createErr       error
	setTokenErr     error
	markVerifiedErr error

	creates      int
	markVerified int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]domain.User{}}
}

func (f *fakeUserStore) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserStore) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findByEmailErr != nil {
		return domain.User{}, f.findByEmailErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findByIDErr != nil {
		return domain.User{}, f.findByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserStore) FindByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findByTokenErr != nil {
		return domain.User{}, f.findByTokenErr
	}
	for _, u := range f.byID {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

// Create behaves like a unique index on email.
func (f *fakeUserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
	}
	f.byID[u.ID] = u
	f.creates++
	return u, nil
}

func (f *fakeUserStore) SetVerificationToken(ctx context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setTokenErr != nil {
		return f.setTokenErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.EmailVerificationToken = &token
	f.byID[userID] = u
	return nil
}

func (f *fakeUserStore) MarkEmailVerified(ctx context.Context, userID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markVerifiedErr != nil {
		return false, f.markVerifiedErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return false, domain.ErrUserNotFound()
	}
	if u.EmailVerified {
		return false, nil
	}
	u.EmailVerified = true
	u.EmailVerificationDate = &at
	f.byID[userID] = u
	f.markVerified++
	return true, nil
}

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error

	mu       sync.Mutex
	compares int
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()

	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeTokens struct {
	mu  sync.Mutex
	n   int
	err error
}

func (g *fakeTokens) NewToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}
	g.n++
	return fmt.Sprintf("tok%02d", g.n), nil
}

type fakeSessionStore struct {
	mu sync.Mutex

	byID map[string]string // sessionID -> userID
	n    int

	createErr  error
	resolveErr error
	deleteErr  error

	deleted []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byID: map[string]string{}}
}

func (s *fakeSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return "", s.createErr
	}
	s.n++
	sid := fmt.Sprintf("sid%d:%s", s.n, userID)
	s.byID[sid] = userID
	return sid, nil
}

func (s *fakeSessionStore) Resolve(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	return s.byID[sessionID], nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.byID, sessionID)
	s.deleted = append(s.deleted, sessionID)
	return nil
}

func (s *fakeSessionStore) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	events []VerifyEmailEvent
	// seen captures the stored record at dispatch time.
	seen func(evt VerifyEmailEvent)
}

func (n *fakeNotifier) PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error {
	if n.seen != nil {
		n.seen(evt)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.err
}

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAuditor) add(action string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, fields: fields})
}

func (a *recordingAuditor) AccountCreated(_ context.Context, userID, email string) {
	a.add("account_created", map[string]string{"user_id": userID, "email": email})
}

func (a *recordingAuditor) LoginSuccess(_ context.Context, userID, email string) {
	a.add("login_success", map[string]string{"user_id": userID, "email": email})
}

func (a *recordingAuditor) LoginFailed(_ context.Context, email, reason string) {
	a.add("login_failed", map[string]string{"email": email, "reason": reason})
}

func (a *recordingAuditor) EmailVerified(_ context.Context, userID, email string) {
	a.add("email_verified", map[string]string{"user_id": userID, "email": email})
}

func (a *recordingAuditor) Logout(_ context.Context, userID string) {
	a.add("logout", map[string]string{"user_id": userID})
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.action)
	}
	return out
}

/*
Service under test
*/

type testEnv struct {
	svc      *Service
	users    *fakeUserStore
	hasher   *fakeHasher
	tokens   *fakeTokens
	sessions *fakeSessionStore
	notifier *fakeNotifier
	audit    *recordingAuditor
	now      time.Time
}

func newSvcForTest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    newFakeUserStore(),
		hasher:   &fakeHasher{},
		tokens:   &fakeTokens{},
		sessions: newFakeSessionStore(),
		notifier: &fakeNotifier{},
		audit:    &recordingAuditor{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(env.users, env.hasher, env.tokens, env.sessions, env.notifier, Config{
		PublicBaseURL: "https://app.example.com/",
		AccountHome:   "/account",
		SessionTTL:    time.Hour,
	}).WithAudit(env.audit).WithClock(func() time.Time { return env.now })
	return env
}
