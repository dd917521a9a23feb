package flows

import (
	"context"

	"github.com/MrEthical07/folioauth/jwt"
)

// AuthenticateResult returns either the verified access claims or a classified failure.
type AuthenticateResult struct {
	Failure Failure
	Err     error
	Claims  *jwt.Claims
}

// AuthenticateDeps captures dependencies of access-token authentication.
type AuthenticateDeps struct {
	VerifyAccess  func(token string) (*jwt.Claims, error)
	IsBlacklisted func(ctx context.Context, token string) (bool, error)
}

// RunAuthenticate accepts an access token only when it verifies and has not been revoked.
// A blacklist outage fails closed.
func RunAuthenticate(ctx context.Context, token string, deps AuthenticateDeps) AuthenticateResult {
	if deps.VerifyAccess == nil {
		return AuthenticateResult{Failure: FailureInternal, Err: ErrNotReady}
	}
	if token == "" {
		return AuthenticateResult{Failure: FailureUnauthorized}
	}

	claims, err := deps.VerifyAccess(token)
	if err != nil {
		return AuthenticateResult{Failure: FailureUnauthorized, Err: err}
	}

	if deps.IsBlacklisted != nil {
		revoked, err := deps.IsBlacklisted(ctx, token)
		if err != nil {
			return AuthenticateResult{Failure: FailureInternal, Err: err}
		}
		if revoked {
			return AuthenticateResult{Failure: FailureUnauthorized}
		}
	}
	return AuthenticateResult{Claims: claims}
}
