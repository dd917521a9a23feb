package folioauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/folioauth/jwt"
	"github.com/MrEthical07/folioauth/password"
)

// Config holds every tunable of the engine. Start from DefaultConfig and override fields.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Lockout  LockoutConfig
	Cookie   CookieConfig
	Audit    AuditConfig
	Password PasswordConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects the signing key. For hs256 PrivateKey is the shared secret.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	KeyID         string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig sets token lifetimes. RefreshTTL applies to plain logins and every refresh;
// RememberTTL applies to logins with RememberMe.
type SessionConfig struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RememberTTL time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

type LockoutConfig struct {
	MaxAttempts    int
	BlockDuration  time.Duration
	Window         time.Duration
	ResetOnSuccess bool
	SweepInterval  time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig is read by the HTTP layer. Secure should be true everywhere except local
// development over plain HTTP.
type CookieConfig struct {
	Secure      bool
	Domain      string
	AccessName  string
	RefreshName string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher. With Enabled false events go to the
// sink synchronously.
type AuditConfig struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	WriteTimeout time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	BcryptCost     int
	UpgradeOnLogin bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. JWT.PrivateKey is empty and must be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "folioauth",
		},
		Session: SessionConfig{
			AccessTTL:   time.Hour,
			RefreshTTL:  7 * 24 * time.Hour,
			RememberTTL: 30 * 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			MaxAttempts:    3,
			BlockDuration:  30 * time.Minute,
			Window:         30 * time.Minute,
			ResetOnSuccess: true,
			SweepInterval:  10 * time.Minute,
		},
		Cookie: CookieConfig{
			Secure:      true,
			AccessName:  "accessToken",
			RefreshName: "refreshToken",
		},
		Audit: AuditConfig{
			Enabled:      true,
			BufferSize:   1024,
			DropIfFull:   true,
			WriteTimeout: 5 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MinLength:      pw.MinPasswordBytes,
			UpgradeOnLogin: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodHS256:
		if len(c.JWT.PrivateKey) < jwt.MinSecretLength {
			return fmt.Errorf("hs256 requires a secret of at least %d bytes", jwt.MinSecretLength)
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.AccessTTL <= 0 {
		return errors.New("Session AccessTTL must be > 0")
	}
	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session RefreshTTL must be > 0")
	}
	if c.Session.RememberTTL < c.Session.RefreshTTL {
		return errors.New("Session RememberTTL must be >= RefreshTTL")
	}
	if c.Session.AccessTTL >= c.Session.RefreshTTL {
		return errors.New("Session AccessTTL must be shorter than RefreshTTL")
	}

	// Lockout
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}
	if c.Lockout.BlockDuration <= 0 {
		return errors.New("Lockout BlockDuration must be > 0")
	}
	if c.Lockout.Window <= 0 {
		return errors.New("Lockout Window must be > 0")
	}
	if c.Lockout.SweepInterval < 0 {
		return errors.New("Lockout SweepInterval must be >= 0")
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie names must be set")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("Cookie AccessName and RefreshName must differ")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.WriteTimeout < 0 {
		return errors.New("Audit WriteTimeout must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 0 {
		return errors.New("Password MinLength must be >= 0")
	}

	return nil
}
