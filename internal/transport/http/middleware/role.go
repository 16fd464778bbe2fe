package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// RequireRole lets through only requests whose token role is one of roles.
// It must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				slog.WarnContext(r.Context(), "admin route denied", "subject", claims.Subject, "role", claims.Role, "path", r.URL.Path)
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
