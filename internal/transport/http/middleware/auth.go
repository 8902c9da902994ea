package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-waitlist-api/internal/application/auth"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// BearerValidator resolves a bearer token to a live session principal.
type BearerValidator interface {
	ValidateBearer(ctx context.Context, token string) (*auth.Principal, error)
}

// Auth returns middleware that validates the Bearer token and injects the
// principal into the request context.
func Auth(v BearerValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			p, err := v.ValidateBearer(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext extracts the authenticated principal from the request context.
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*auth.Principal)
	return p, ok
}
