package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	jwtinfra "github.com/event-snap/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

type tokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Auth validates the Bearer access token, stores its claims in the request
// context and tags the active span with the caller.
func Auth(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeJSONError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := verifier.Verify(raw)
			if err != nil {
				writeJSONError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			trace.SpanFromContext(r.Context()).SetAttributes(
				attribute.String("enduser.id", claims.UserID),
				attribute.String("enduser.role", claims.Role),
			)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// ClaimsFromContext returns the claims Auth stored, if any.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}
