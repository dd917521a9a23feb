package blacklist

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrUnavailable indicates the blacklist backend could not be reached.
var ErrUnavailable = errors.New("blacklist backend unavailable")

// Key returns the storage key for token: the hex SHA-256 of the exact token string. Raw tokens
// are never written to the backend.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
