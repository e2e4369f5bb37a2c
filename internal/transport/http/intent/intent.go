// Package intent remembers where an anonymous visitor was headed when they
// got bounced to the login page, so login can send them back there.
package intent

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
)

const (
	CookieName = "requested_url"

	// A detour through the login form should not take longer than this.
	defaultTTL = 30 * time.Minute
)

// Cache keeps the marker in a cookie. It is single-use: Consume clears it.
type Cache struct {
	secure bool
	ttl    time.Duration
}

func New(secure bool) *Cache {
	return &Cache{secure: secure, ttl: defaultTTL}
}

// Remember records path when it is a safe same-origin path. Unsafe values are
// dropped silently.
func (c *Cache) Remember(w http.ResponseWriter, path string) {
	if !SafePath(path) {
		return
	}
	security.SetCookie(w, CookieName, url.QueryEscape(path), c.ttl, c.secure)
}

// Read returns the marker only if it is still a safe relative path.
func (c *Cache) Read(r *http.Request) (string, bool) {
	raw, err := security.ReadCookie(r, CookieName)
	if err != nil || raw == "" {
		return "", false
	}
	path, err := url.QueryUnescape(raw)
	if err != nil || !SafePath(path) {
		return "", false
	}
	return path, true
}

func (c *Cache) Clear(w http.ResponseWriter) {
	security.ClearCookie(w, CookieName, c.secure)
}

// Consume reads then clears the marker, falling back when it is absent or unsafe.
func (c *Cache) Consume(w http.ResponseWriter, r *http.Request, fallback string) string {
	path, ok := c.Read(r)
	if _, err := security.ReadCookie(r, CookieName); err == nil {
		c.Clear(w)
	}
	if !ok {
		return fallback
	}
	return path
}

// SafePath accepts only paths on this origin: a leading slash, no
// protocol-relative "//", no backslashes and no scheme or host.
func SafePath(p string) bool {
	if p == "" || len(p) > 2048 {
		return false
	}
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return false
	}
	if strings.ContainsAny(p, "\\\r\n\x00") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}
