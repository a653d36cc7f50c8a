package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/backlinefm/backline/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// Auth returns middleware that requires a valid session. The session token
// is read from the session cookie (admin console) or a bearer token (API
// clients).
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ident, err := authService.ValidateSession(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects non-admin identities. It must
// run inside Auth.
func RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if ident == nil || !ident.IsAdmin() {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

// IdentityFromContext extracts the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	if v, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return v
	}
	return nil
}

func extractToken(r *http.Request) string {
	// Cookie first (admin console), then Authorization header.
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
