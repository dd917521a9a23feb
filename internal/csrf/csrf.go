// Package csrf implements double-submit anti-forgery tokens: the same random value is set as a
// cookie and echoed by the UI in a header or body field.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

const (
	// CookieName is the cookie carrying the token.
	CookieName = "csrfToken"
	// HeaderName is the request header the UI echoes the token in.
	HeaderName = "X-CSRF-Token"

	tokenBytes = 32
)

// NewToken returns a fresh URL-safe random token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Valid reports whether the submitted token matches the cookie. Both must be present; the
// comparison is constant time.
func Valid(token, cookie string) bool {
	if token == "" || cookie == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(cookie)) == 1
}
