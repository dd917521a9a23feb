package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the algorithm used to sign access and refresh tokens.
type SigningMethod string

const (
	// MethodHS256 signs with a shared process-wide secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with its public key.
	MethodEd25519 SigningMethod = "ed25519"
)

// TokenType distinguishes access tokens from refresh tokens inside the "typ" claim.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// MinSecretLength is the minimum HS256 secret size accepted by NewManager.
const MinSecretLength = 32

var (
	// ErrInvalidSignature is returned when the token signature does not match the configured key.
	ErrInvalidSignature = errors.New("jwt: invalid signature")
	// ErrExpired is returned when the token is past its exp claim.
	ErrExpired = errors.New("jwt: token expired")
	// ErrMalformed is returned for tokens that cannot be decoded or fail claim validation.
	ErrMalformed = errors.New("jwt: malformed token")
	// ErrWrongType is returned by VerifyAccess and VerifyRefresh when the typ claim does not match.
	ErrWrongType = errors.New("jwt: unexpected token type")
)

// Config configures a Manager.
//
// AccessTTL defaults to one hour. Now defaults to time.Now and exists so tests can move the clock.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
	Now           func() time.Time
}

// Identity is the user data carried by every token.
type Identity struct {
	UserID   int64
	Username string
	Email    string
	Role     string
}

// Claims is the decoded payload of an access or refresh token.
type Claims struct {
	UserID   int64     `json:"uid"`
	Username string    `json:"usr"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Identity returns the user part of the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username, Email: c.Email, Role: c.Role}
}

// Remaining returns exp minus now, floored at zero.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	ttl := c.ExpiresAt.Time.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Manager issues and verifies signed tokens. Verification is a pure function of the token and the
// configured key: it never consults session storage or revocation lists.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.AccessTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < MinSecretLength {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", MinSecretLength)
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) == 0 {
			priv, _ := parseEdPrivateKey(cfg.PrivateKey)
			cfg.PublicKey = priv.Public().(ed25519.PublicKey)
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (j *Manager) AccessTTL() time.Duration {
	return j.config.AccessTTL
}

// Leeway reports the clock skew Verify tolerates past exp.
func (j *Manager) Leeway() time.Duration {
	return j.config.Leeway
}

// IssueAccess signs an access token for id with the configured access lifetime.
func (j *Manager) IssueAccess(id Identity) (string, error) {
	return j.issue(id, TypeAccess, j.config.AccessTTL)
}

// IssueRefresh signs a refresh token for id that expires after lifetime.
func (j *Manager) IssueRefresh(id Identity, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		return "", errors.New("refresh lifetime must be positive")
	}
	return j.issue(id, TypeRefresh, lifetime)
}

func (j *Manager) issue(id Identity, typ TokenType, ttl time.Duration) (string, error) {
	now := j.config.Now()
	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Email:    id.Email,
		Role:     id.Role,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", id.UserID),
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// Verify checks signature and expiry and returns the decoded claims.
//
// Failures are reported as ErrInvalidSignature, ErrExpired or ErrMalformed so callers can branch
// with errors.Is.
func (j *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithTimeFunc(j.config.Now),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return j.getVerifyKey()
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// VerifyAccess is Verify restricted to access tokens.
func (j *Manager) VerifyAccess(tokenStr string) (*Claims, error) {
	return j.verifyType(tokenStr, TypeAccess)
}

// VerifyRefresh is Verify restricted to refresh tokens.
func (j *Manager) VerifyRefresh(tokenStr string) (*Claims, error) {
	return j.verifyType(tokenStr, TypeRefresh)
}

func (j *Manager) verifyType(tokenStr string, typ TokenType) (*Claims, error) {
	claims, err := j.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, ErrWrongType
	}
	return claims, nil
}

// classify folds library errors into the package's three verification outcomes. Signature
// failures are checked first so a forged token that is also expired reports as forged.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
