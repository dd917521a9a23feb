package folioauth

import (
	"context"
	"time"

	"github.com/MrEthical07/folioauth/internal/flows"
	"github.com/MrEthical07/folioauth/internal/limiters"
	"github.com/MrEthical07/folioauth/session"
)

// Role is an admin's authorization level.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleEditor:
		return true
	}
	return false
}

// AdminRecord is what a CredentialStore returns. PasswordHash is consumed by the engine and
// never appears in a Result.
type AdminRecord struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
}

// User is the sanitized admin returned to clients: id, username, email and role.
type User = flows.User

// CredentialStore looks up admins. Both methods return ErrUserNotFound for unknown admins.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (AdminRecord, error)
	GetByID(ctx context.Context, id int64) (AdminRecord, error)
}

// PasswordHashUpdater is optionally implemented by a CredentialStore. When present and
// Password.UpgradeOnLogin is set, legacy hashes are replaced after a successful login.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// SessionStore persists refresh-token sessions. *session.Store implements it.
//
// DeleteByToken must report whether a row was removed; refresh relies on it to make tokens
// single-use.
type SessionStore interface {
	Create(ctx context.Context, s *session.Session) error
	FindByToken(ctx context.Context, token string) (*session.Session, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Blacklist records revoked tokens until they would have expired anyway.
type Blacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

// LockoutStore holds failed-attempt records. See NewSQLLockoutStore and NewRedisLockoutStore.
type LockoutStore = limiters.Store

// LockoutRecord is one identifier's failure history.
type LockoutRecord = limiters.Record

// LoginRequest is one login attempt. CSRFToken comes from the body or header; CSRFCookie from
// the csrfToken cookie.
type LoginRequest struct {
	Username   string
	Password   string
	RememberMe bool
	CSRFToken  string
	CSRFCookie string
}

// LogoutRequest carries whichever tokens the client still holds.
type LogoutRequest struct {
	AccessToken  string
	RefreshToken string
}

// Tokens is an issued access/refresh pair.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Result is the outcome of Login, Refresh and Authenticate. On success Kind is KindNone and
// User is set; Tokens is set by Login and Refresh. Err carries the cause of a KindInternal
// result for operational logs and is never shown to clients.
type Result struct {
	Kind   Kind
	User   User
	Tokens Tokens
	Err    error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// LogoutResult reports what Logout revoked. Logout itself cannot fail.
type LogoutResult struct {
	AdminID        int64
	AccessRevoked  bool
	RefreshRevoked bool
	SessionDeleted bool
}
