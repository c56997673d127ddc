// Package auth implements the organiser gate: a shared secret sent in the
// X-Admin-Password header. The gate only marks the request context; the
// service decides which operations need an organiser.
package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// HeaderAdminPassword carries the organiser's shared secret.
const HeaderAdminPassword = "X-Admin-Password"

type contextKey string

const organiserKey contextKey = "organiser"

// WithOrganiser returns a context marked as acting for the organiser.
func WithOrganiser(ctx context.Context) context.Context {
	return context.WithValue(ctx, organiserKey, true)
}

// IsOrganiser reports whether ctx was marked by WithOrganiser.
func IsOrganiser(ctx context.Context) bool {
	ok, _ := ctx.Value(organiserKey).(bool)
	return ok
}

// Check compares a presented secret with the configured one in constant time.
// An empty configured secret never matches.
func Check(presented, secret string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}

// OptionalOrganiser marks the request context when the admin header matches
// secret and passes every request through. Organiser-only operations are
// refused further down when the mark is missing.
func OptionalOrganiser(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(HeaderAdminPassword)
			if presented != "" {
				if Check(presented, secret) {
					r = r.WithContext(WithOrganiser(r.Context()))
				} else {
					slog.Warn("admin password rejected", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
