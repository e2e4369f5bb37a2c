package security

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "sid"

	hostPrefix = "__Host-"
)

// CookieName is the on-the-wire name for base. Secure cookies get the
// __Host- prefix, which pins them to Path=/ and the exact host.
func CookieName(base string, secure bool) string {
	if secure {
		return hostPrefix + base
	}
	return base
}

// SetCookie writes an HttpOnly, SameSite=Lax cookie scoped to the whole site.
// A non-positive ttl yields a browser-session cookie.
func SetCookie(w http.ResponseWriter, base, value string, ttl time.Duration, secure bool) {
	c := &http.Cookie{
		Name:     CookieName(base, secure),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure, // prod=true, dev=false
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

// ClearCookie expires base. In secure mode the plain name is expired too,
// since ReadCookie accepts it as a fallback.
func ClearCookie(w http.ResponseWriter, base string, secure bool) {
	expire(w, CookieName(base, secure), secure)
	if secure {
		expire(w, base, secure)
	}
}

func expire(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// ReadCookie prefers the __Host- variant and falls back to the plain name
// (local non-HTTPS development).
func ReadCookie(r *http.Request, base string) (string, error) {
	if c, err := r.Cookie(hostPrefix + base); err == nil {
		return c.Value, nil
	}
	c, err := r.Cookie(base)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

func SetSession(w http.ResponseWriter, sessionID string, ttl time.Duration, secure bool) {
	SetCookie(w, SessionCookieName, sessionID, ttl, secure)
}

func ClearSession(w http.ResponseWriter, secure bool) {
	ClearCookie(w, SessionCookieName, secure)
}

// ReadSession returns the caller's session id, or "" when there is none.
func ReadSession(r *http.Request) string {
	v, err := ReadCookie(r, SessionCookieName)
	if err != nil {
		return ""
	}
	return v
}
