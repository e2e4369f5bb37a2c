package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// CSRFProtection rejects state-changing requests whose Origin (or Referer)
// is not one of allowedOrigins. The session cookie is SameSite=Lax; this
// covers browsers and flows where Lax is not enough.
func CSRFProtection(allowedOrigins []string) func(http.Handler) http.Handler {
	allowedHosts := make(map[string]struct{})
	for _, origin := range allowedOrigins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			allowedHosts[strings.ToLower(u.Host)] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origin == "" {
				http.Error(w, `{"error":"missing_origin","message":"Origin or Referer header required"}`, http.StatusForbidden)
				return
			}

			u, err := url.Parse(origin)
			if err != nil {
				http.Error(w, `{"error":"invalid_origin","message":"Invalid Origin header"}`, http.StatusForbidden)
				return
			}

			if _, ok := allowedHosts[strings.ToLower(u.Host)]; !ok {
				http.Error(w, `{"error":"csrf_rejected","message":"Cross-origin request not allowed"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AllowedOrigins is the public origin plus the usual local dev origins.
func AllowedOrigins(publicBaseURL string, dev bool) []string {
	out := []string{publicBaseURL}
	if dev {
		out = append(out,
			"http://localhost:3000",
			"http://localhost:8080",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:8080",
		)
	}
	return out
}
