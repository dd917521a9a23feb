package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/folioauth"
)

type userContextKey struct{}

// UserFromContext returns the admin attached by Guard.
func UserFromContext(ctx context.Context) (folioauth.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(folioauth.User)
	return u, ok
}

// WithUser attaches u to ctx the way Guard does. Useful for handler tests.
func WithUser(ctx context.Context, u folioauth.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// Guard admits requests carrying a valid, non-revoked access token, read from the named cookie
// or, failing that, an "Authorization: Bearer" header.
func Guard(engine *folioauth.Engine, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, folioauth.KindUnauthorized)
				return
			}

			token := accessToken(r, cookieName)
			if token == "" {
				WriteError(w, folioauth.KindUnauthorized)
				return
			}

			res := engine.Authenticate(r.Context(), token)
			if !res.OK() {
				WriteError(w, res.Kind)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), res.User)))
		})
	}
}

func accessToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

// WriteError writes {"success":false,"error":...} with the status mapped from k.
func WriteError(w http.ResponseWriter, k folioauth.Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(folioauth.StatusCode(k))
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   folioauth.Message(k),
	})
}
