package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
)

// TokenValidator turns a bearer token into the caller it was issued to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (authz.Caller, error)
}

// BearerAuth validates the JWT in the Authorization header and stores the
// resulting authz.Caller in the request context.
func BearerAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			caller, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(authz.WithCaller(r.Context(), caller)))
		})
	}
}

// AdminOnly rejects callers without the admin role. It must run after
// BearerAuth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := authz.CallerFromCtx(r.Context())
		if !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if err := authz.RequireAdmin(caller); err != nil {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
