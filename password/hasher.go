package password

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("password: malformed hash")
	// ErrPasswordPolicy is returned when a plaintext violates length limits.
	ErrPasswordPolicy = errors.New("password: policy violation")
)

// Hasher produces and checks password hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Multi hashes with Primary and verifies any hash format it recognises: argon2id PHC strings go to
// Primary, bcrypt strings go to Legacy.
type Multi struct {
	Primary *Argon2
	Legacy  *Bcrypt
}

// NewDefault returns a Multi using DefaultConfig and bcrypt.DefaultCost.
func NewDefault() (*Multi, error) {
	a, err := NewArgon2(DefaultConfig())
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	return &Multi{Primary: a, Legacy: b}, nil
}

func (m *Multi) Hash(password string) (string, error) {
	return m.Primary.Hash(password)
}

func (m *Multi) Verify(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return m.Primary.Verify(password, encoded)
	case isBcrypt(encoded):
		if m.Legacy == nil {
			return false, ErrMalformedHash
		}
		return m.Legacy.Verify(password, encoded)
	default:
		return false, ErrMalformedHash
	}
}

// NeedsUpgrade reports true for bcrypt hashes and for argon2id hashes with outdated parameters.
func (m *Multi) NeedsUpgrade(encoded string) (bool, error) {
	if isBcrypt(encoded) {
		return true, nil
	}
	return m.Primary.NeedsUpgrade(encoded)
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
