package middleware

import (
	"net/http"
	"slices"
)

// RequireRole admits requests whose claims carry one of roles. It must run
// after Auth; a request without claims is answered 401, a wrong role 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			switch {
			case !ok:
				writeJSONError(w, r, http.StatusUnauthorized, "unauthorized")
			case !slices.Contains(roles, claims.Role):
				writeJSONError(w, r, http.StatusForbidden, "forbidden")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
