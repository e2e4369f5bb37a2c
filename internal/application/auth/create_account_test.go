package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func TestCreateAccount_Success_LogsInIssuesTokenAndNotifies(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)

	// the record must be unverified with a token at the moment of dispatch
	env.notifier.seen = func(evt VerifyEmailEvent) {
		u := env.users.get(evt.UserID)
		if u.EmailVerified {
			t.Errorf("expected unverified record at dispatch")
		}
		if !u.HasVerificationToken() {
			t.Errorf("expected token persisted before dispatch")
		}
	}

	res, err := env.svc.CreateAccount(context.Background(), "  A@X.com ", "pw1", "")
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if res.Stage != StageNotified {
		t.Fatalf("expected stage notified, got %s", res.Stage)
	}
	if res.User.Email != "a@x.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if res.User.EmailVerified {
		t.Fatalf("expected unverified user")
	}
	if res.User.EmailVerificationToken == nil || *res.User.EmailVerificationToken == "" {
		t.Fatalf("expected token on result")
	}
	if res.NotifyErr != nil {
		t.Fatalf("unexpected notify err: %v", res.NotifyErr)
	}

	stored := env.users.get(res.User.ID)
	if stored.PasswordHash != "hash:pw1" {
		t.Fatalf("expected hashed password stored, got %q", stored.PasswordHash)
	}
	if *stored.EmailVerificationToken != *res.User.EmailVerificationToken {
		t.Fatalf("stored token differs from result")
	}
	if !stored.CreatedAt.Equal(env.now) {
		t.Fatalf("expected CreatedAt=%v, got %v", env.now, stored.CreatedAt)
	}

	u, ok := env.svc.Sessions().CurrentUser(context.Background(), res.SessionID)
	if !ok || u.ID != res.User.ID {
		t.Fatalf("expected session bound to new user, got ok=%v user=%+v", ok, u)
	}

	if len(env.notifier.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(env.notifier.events))
	}
	evt := env.notifier.events[0]
	if evt.Email != "a@x.com" || evt.UserID != res.User.ID {
		t.Fatalf("unexpected event: %+v", evt)
	}
	want := "https://app.example.com/verify-email/" + *res.User.EmailVerificationToken
	if evt.URL != want {
		t.Fatalf("expected url %q, got %q", want, evt.URL)
	}
}

func TestCreateAccount_DuplicateEmail_NoSecondRecord(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	ctx := context.Background()

	if _, err := env.svc.CreateAccount(ctx, "a@x.com", "pw1", ""); err != nil {
		t.Fatalf("first create: %v", err)
	}

	res, err := env.svc.CreateAccount(ctx, "A@x.com", "other", "")
	requireErrCode(t, err, domain.CodeEmailAlreadyExists)
	if res.Stage != StageNone {
		t.Fatalf("expected nothing written, got stage %s", res.Stage)
	}
	if env.users.count() != 1 {
		t.Fatalf("expected 1 record, got %d", env.users.count())
	}
}

func TestCreateAccount_ConcurrentSameEmail_OneWins(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.CreateAccount(ctx, "race@x.com", "pw", "")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.Is(err, domain.CodeEmailAlreadyExists):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one success, got %d", ok)
	}
	if env.users.count() != 1 {
		t.Fatalf("expected 1 record, got %d", env.users.count())
	}
}

func TestCreateAccount_StoreDuplicateOnInsert_MapsToDuplicate(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.users.createErr = domain.ErrEmailAlreadyExists()

	_, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	requireErrCode(t, err, domain.CodeEmailAlreadyExists)
}

func TestCreateAccount_PolicyViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, email, password, field string
	}{
		{"empty password", "a@x.com", "", "password"},
		{"empty email", "", "pw", "email"},
		{"bad email", "not-an-email", "pw", "email"},
		{"password too long", "a@x.com", strings.Repeat("p", 73), "password"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newSvcForTest(t)

			res, err := env.svc.CreateAccount(context.Background(), tc.email, tc.password, "")
			requireErrCode(t, err, domain.CodeInvalidCredentials)

			var de *domain.Error
			if !errors.As(err, &de) || de.Kind != domain.KindValidation || de.Meta["field"] != tc.field {
				t.Fatalf("unexpected error: %+v", err)
			}
			if res.Stage != StageNone || env.users.count() != 0 {
				t.Fatalf("expected nothing written")
			}
		})
	}
}

func TestCreateAccount_EmptyPassword_Message(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	_, err := env.svc.CreateAccount(context.Background(), "a@x.com", "", "")
	if got := domain.MessageOf(err); got != "No password was given" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestCreateAccount_LookupOutage_DBUnavailable(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.users.findByEmailErr = errors.New("conn refused")

	_, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	requireErrCode(t, err, domain.CodeDBUnavailable)
}

func TestCreateAccount_HashFail_ReturnsHashFailed(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.hasher.hashFn = func(pw string) (string, error) { return "", errors.New("boom") }

	_, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	requireErrCode(t, err, domain.CodeHashFailed)
	if env.users.count() != 0 {
		t.Fatalf("expected no record")
	}
}

func TestCreateAccount_InsertFailure_PersistFailed(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.users.createErr = domain.ErrDBUnavailable(errors.New("down"))

	res, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	requireErrCode(t, err, domain.CodePersistFailed)
	if res.Stage != StageNone {
		t.Fatalf("unexpected stage %s", res.Stage)
	}
}

func TestCreateAccount_SessionFailure_RecordKept_NoToken(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.sessions.createErr = errors.New("redis down")

	res, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	requireErrCode(t, err, domain.CodeSessionUnavailable)

	if res.Stage != StageRecordCreated {
		t.Fatalf("expected stage record_created, got %s", res.Stage)
	}
	if res.User.ID == "" || res.SessionID != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	stored := env.users.get(res.User.ID)
	if stored.ID == "" {
		t.Fatalf("expected record not rolled back")
	}
	if stored.HasVerificationToken() {
		t.Fatalf("token must not be issued without a session")
	}
	if len(env.notifier.events) != 0 {
		t.Fatalf("expected no notification")
	}
}

func TestCreateAccount_TokenPersistFailure_SessionLive(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.users.setTokenErr = errors.New("write failed")

	res, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	requireErrCode(t, err, domain.CodePersistFailed)

	if res.Stage != StageSessionEstablished {
		t.Fatalf("expected stage session_established, got %s", res.Stage)
	}
	if _, ok := env.svc.Sessions().CurrentUser(context.Background(), res.SessionID); !ok {
		t.Fatalf("expected live session")
	}
	if env.users.get(res.User.ID).HasVerificationToken() {
		t.Fatalf("expected record without token")
	}
	if len(env.notifier.events) != 0 {
		t.Fatalf("expected no notification")
	}
}

func TestCreateAccount_RandomFailure(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.tokens.err = errors.New("entropy exhausted")

	res, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	requireErrCode(t, err, domain.CodeRandomFailed)
	if res.Stage != StageSessionEstablished {
		t.Fatalf("unexpected stage %s", res.Stage)
	}
}

func TestCreateAccount_NotifierFailure_StillSucceeds(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	env.notifier.err = errors.New("broker down")

	res, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", "")
	if err != nil {
		t.Fatalf("expected success despite notifier failure, got %v", err)
	}
	if res.Stage != StageTokenIssued {
		t.Fatalf("expected stage token_issued, got %s", res.Stage)
	}
	requireErrCode(t, res.NotifyErr, domain.CodeNotifyFailed)
	if _, ok := env.svc.Sessions().CurrentUser(context.Background(), res.SessionID); !ok {
		t.Fatalf("expected live session")
	}
}

func TestCreateAccount_ReplacesPreviousSession(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	ctx := context.Background()

	env.users.put(domain.User{ID: "old", Email: "old@x.com", PasswordHash: "hash:pw"})
	prev, err := env.svc.Sessions().Establish(ctx, "", env.users.get("old"))
	if err != nil {
		t.Fatalf("establish: %v", err)
	}

	res, err := env.svc.CreateAccount(ctx, "new@x.com", "pw", prev)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := env.svc.Sessions().CurrentUser(ctx, prev); ok {
		t.Fatalf("expected previous session destroyed")
	}
	if res.SessionID == prev {
		t.Fatalf("expected fresh session id")
	}
}

func TestCreateAccount_TokensAreUnique(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		res, err := env.svc.CreateAccount(ctx, email, "pw", "")
		if err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
		tok := *res.User.EmailVerificationToken
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestCreateAccount_Audits(t *testing.T) {
	t.Parallel()

	env := newSvcForTest(t)
	if _, err := env.svc.CreateAccount(context.Background(), "a@x.com", "pw", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	got := env.audit.actions()
	if len(got) != 1 || got[0] != "account_created" {
		t.Fatalf("unexpected audit actions: %v", got)
	}
}
