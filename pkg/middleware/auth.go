package middleware

import (
	"encoding/json"
	"net/http"

	"pdfdesk/pkg/errors"
)

// SessionChecker reports whether the admin session is live
type SessionChecker interface {
	IsAuthenticated() bool
}

// RequireAdmin rejects requests with 401 unless the admin session is live.
// The session is checked on every request; nothing is cached per client.
func RequireAdmin(session SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !session.IsAuthenticated() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(errors.ToFrontendError(errors.ErrNotAuthenticated))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable; admin payloads must not outlive
// the session in a browser cache
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
