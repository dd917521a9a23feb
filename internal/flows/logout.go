package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/folioauth/jwt"
)

// LogoutRequest holds whatever tokens the client still presented. Either may be empty.
type LogoutRequest struct {
	AccessToken  string
	RefreshToken string
}

// LogoutResult reports what logout managed to revoke. Logout has no failure kind.
type LogoutResult struct {
	AdminID        int64
	AccessRevoked  bool
	RefreshRevoked bool
	SessionDeleted bool
}

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout           int
	SessionDeleted   int
	BlacklistAdded   int
	BlacklistFailure int
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Now           func() time.Time
	Leeway        time.Duration
	Verify        func(token string) (*jwt.Claims, error)
	Blacklist     func(ctx context.Context, token string, ttl time.Duration) error
	DeleteSession func(ctx context.Context, token string) (bool, error)

	EmitAudit func(context.Context, AuditRecord)
	MetricInc func(int)
	Warn      func(string, ...any)

	Metrics     LogoutMetrics
	LogoutEvent string
}

// RunLogout revokes what it can and never fails. Blacklist entries live as long as Verify would
// still accept the token, expiry plus Leeway; session deletion is unconditional for a presented
// refresh token.
func RunLogout(ctx context.Context, req LogoutRequest, deps LogoutDeps) LogoutResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}

	var res LogoutResult

	if req.AccessToken != "" && deps.Verify != nil {
		if claims, err := deps.Verify(req.AccessToken); err == nil {
			res.AdminID = claims.UserID
			res.AccessRevoked = revoke(ctx, deps, req.AccessToken, claims, "access")
		}
	}

	if req.RefreshToken != "" {
		if deps.DeleteSession != nil {
			deleted, err := deps.DeleteSession(ctx, req.RefreshToken)
			switch {
			case err != nil:
				deps.Warn("logout: session delete failed", "error", err)
			case deleted:
				res.SessionDeleted = true
				deps.MetricInc(deps.Metrics.SessionDeleted)
			}
		}
		if deps.Verify != nil {
			if claims, err := deps.Verify(req.RefreshToken); err == nil {
				if res.AdminID == 0 {
					res.AdminID = claims.UserID
				}
				res.RefreshRevoked = revoke(ctx, deps, req.RefreshToken, claims, "refresh")
			}
		}
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, AuditRecord{Action: deps.LogoutEvent, AdminID: res.AdminID, Success: true})
	return res
}

func revoke(ctx context.Context, deps LogoutDeps, token string, claims *jwt.Claims, kind string) bool {
	if deps.Blacklist == nil {
		return false
	}
	ttl := claims.Remaining(deps.Now().Add(-deps.Leeway))
	if ttl <= 0 {
		return false
	}
	if err := deps.Blacklist(ctx, token, ttl); err != nil {
		deps.MetricInc(deps.Metrics.BlacklistFailure)
		deps.Warn("logout: blacklist write failed", "token_type", kind, "error", err)
		return false
	}
	deps.MetricInc(deps.Metrics.BlacklistAdded)
	return true
}
