package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/folioauth/internal/limiters"
)

// Failure classifies why an auth flow stopped. FailureNone means success.
type Failure int

const (
	FailureNone Failure = iota
	FailureCSRFInvalid
	FailureValidation
	FailureRateLimited
	FailureInvalidCredentials
	FailureAccountInactive
	FailureMissingToken
	FailureInvalidToken
	FailureSessionNotFound
	FailureSessionExpired
	FailureUserInactive
	FailureUnauthorized
	FailureInternal
)

var failureNames = [...]string{
	FailureNone:               "None",
	FailureCSRFInvalid:        "CsrfInvalid",
	FailureValidation:         "ValidationFailed",
	FailureRateLimited:        "RateLimited",
	FailureInvalidCredentials: "InvalidCredentials",
	FailureAccountInactive:    "AccountInactive",
	FailureMissingToken:       "MissingToken",
	FailureInvalidToken:       "InvalidToken",
	FailureSessionNotFound:    "SessionNotFound",
	FailureSessionExpired:     "SessionExpired",
	FailureUserInactive:       "UserInactive",
	FailureUnauthorized:       "Unauthorized",
	FailureInternal:           "InternalError",
}

func (f Failure) String() string {
	if f < 0 || int(f) >= len(failureNames) {
		return "Unknown"
	}
	return failureNames[f]
}

// ErrNotReady is returned inside a FailureInternal result when required deps are missing.
var ErrNotReady = errors.New("flow dependencies not wired")

// Account is the credential-store view a flow works with. PasswordHash never leaves the flows.
type Account struct {
	ID           int64
	Username     string
	Email        string
	Role         string
	PasswordHash string
	Active       bool
}

// User is the sanitized account returned to clients.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Public strips credentials from a.
func (a Account) Public() User {
	return User{ID: a.ID, Username: a.Username, Email: a.Email, Role: a.Role}
}

// TokenPair is a freshly issued access/refresh pair with their absolute expiries.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuditRecord is what a flow asks the engine to write to the audit log. Request metadata
// (ip, user agent) is added by the engine from the context.
type AuditRecord struct {
	Action  string
	AdminID int64
	Success bool
	Reason  string
	Details map[string]string
}

// LoginIdentifier builds the lockout key for a login attempt: "login:{ip}:{username}".
func LoginIdentifier(ip, username string) string {
	return limiters.Identifier("login", ip, username)
}

func noopAudit(context.Context, AuditRecord) {}
func noopMetric(int)                        {}
func noopWarn(string, ...any)               {}
