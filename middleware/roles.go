package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/folioauth"
)

// RequireRole admits only admins whose role is one of roles. It must run after Guard.
func RequireRole(roles ...folioauth.Role) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				WriteError(w, folioauth.KindUnauthorized)
				return
			}
			if _, ok := allowed[u.Role]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Insufficient permissions"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
