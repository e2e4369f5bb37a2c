package intent

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestSafePath(t *testing.T) {
	cases := map[string]bool{
		"/protected/page":        true,
		"/account?tab=security":  true,
		"/":                      true,
		"":                       false,
		"account":                false,
		"//evil.example.com/x":   false,
		"/\\evil.example.com":    false,
		"https://evil.example":   false,
		"/ok\r\nSet-Cookie: x=1": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, SafePath(in), in)
	}
}

func TestRememberThenConsume_SingleUse(t *testing.T) {
	c := New(false)

	rr := httptest.NewRecorder()
	c.Remember(rr, "/protected/page?x=1")
	ck := cookieFrom(t, rr)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/", ck.Path)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(ck)

	rr2 := httptest.NewRecorder()
	got := c.Consume(rr2, req, "/account")
	assert.Equal(t, "/protected/page?x=1", got)

	cleared := cookieFrom(t, rr2)
	require.NotNil(t, cleared, "consume must clear the marker")
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestConsume_Absent_UsesFallback(t *testing.T) {
	c := New(false)
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	rr := httptest.NewRecorder()
	assert.Equal(t, "/account", c.Consume(rr, req, "/account"))
	assert.Nil(t, cookieFrom(t, rr), "nothing to clear")
}

func TestConsume_Tampered_UsesFallbackAndClears(t *testing.T) {
	c := New(false)
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "https%3A%2F%2Fevil.example"})

	rr := httptest.NewRecorder()
	assert.Equal(t, "/account", c.Consume(rr, req, "/account"))
	ck := cookieFrom(t, rr)
	require.NotNil(t, ck)
	assert.Equal(t, -1, ck.MaxAge)
}

func TestRemember_UnsafeIgnored(t *testing.T) {
	c := New(false)

	rr := httptest.NewRecorder()
	c.Remember(rr, "//evil.example.com")
	assert.Nil(t, cookieFrom(t, rr))
}

func TestRemember_Secure_UsesHostPrefix(t *testing.T) {
	c := New(true)

	rr := httptest.NewRecorder()
	c.Remember(rr, "/account")

	var found bool
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == "__Host-"+CookieName {
			found = true
			assert.True(t, ck.Secure)
		}
	}
	assert.True(t, found)
}

func TestConsume_Secure_PlainMarkerIsNotReplayed(t *testing.T) {
	c := New(true)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%2Fprotected%2Fpage"})
	rr := httptest.NewRecorder()

	assert.Equal(t, "/protected/page", c.Consume(rr, req, "/account"))

	expired := map[string]bool{}
	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			expired[ck.Name] = true
		}
	}
	assert.True(t, expired[CookieName], "plain marker must be expired")
	assert.True(t, expired["__Host-"+CookieName])
}
