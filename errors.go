package folioauth

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/folioauth/blacklist"
	"github.com/MrEthical07/folioauth/internal/flows"
	"github.com/MrEthical07/folioauth/internal/limiters"
	"github.com/MrEthical07/folioauth/session"
)

// Kind classifies the outcome of an auth operation. KindNone means success; every other value
// maps to one HTTP status and one generic client message.
type Kind = flows.Failure

const (
	KindNone               = flows.FailureNone
	KindCSRFInvalid        = flows.FailureCSRFInvalid
	KindValidationFailed   = flows.FailureValidation
	KindRateLimited        = flows.FailureRateLimited
	KindInvalidCredentials = flows.FailureInvalidCredentials
	KindAccountInactive    = flows.FailureAccountInactive
	KindMissingToken       = flows.FailureMissingToken
	KindInvalidToken       = flows.FailureInvalidToken
	KindSessionNotFound    = flows.FailureSessionNotFound
	KindSessionExpired     = flows.FailureSessionExpired
	KindUserInactive       = flows.FailureUserInactive
	KindUnauthorized       = flows.FailureUnauthorized
	KindInternal           = flows.FailureInternal
)

// StatusCode returns the HTTP status for k.
func StatusCode(k Kind) int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindCSRFInvalid, KindAccountInactive:
		return http.StatusForbidden
	case KindValidationFailed, KindMissingToken:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidCredentials, KindInvalidToken, KindSessionNotFound,
		KindSessionExpired, KindUserInactive, KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for k. Unknown users and wrong passwords share
// one message.
func Message(k Kind) string {
	switch k {
	case KindNone:
		return ""
	case KindCSRFInvalid:
		return "Invalid CSRF token"
	case KindValidationFailed:
		return "Username and password are required"
	case KindRateLimited:
		return "Too many login attempts. Please try again later."
	case KindInvalidCredentials:
		return "Invalid credentials"
	case KindAccountInactive:
		return "Account is inactive"
	case KindMissingToken:
		return "Refresh token required"
	case KindInvalidToken:
		return "Invalid refresh token"
	case KindSessionNotFound:
		return "Session not found"
	case KindSessionExpired:
		return "Session expired"
	case KindUserInactive:
		return "User not found or inactive"
	case KindUnauthorized:
		return "Unauthorized"
	default:
		return "Internal server error"
	}
}

var (
	// ErrEngineNotReady is returned when an Engine method runs on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUserNotFound must be returned by CredentialStore lookups for unknown admins.
	ErrUserNotFound = errors.New("user not found")
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")

	ErrSessionNotFound      = session.ErrNotFound
	ErrLockoutUnavailable   = limiters.ErrLockoutUnavailable
	ErrBlacklistUnavailable = blacklist.ErrUnavailable
)
