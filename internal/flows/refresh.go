package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/folioauth/jwt"
	"github.com/MrEthical07/folioauth/session"
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure Failure
	Err     error
	AdminID int64
	User    User
	Tokens  TokenPair
}

// RefreshMetrics carries metric IDs used by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
	SessionCreated int
	SessionDeleted int
}

// RefreshEvents carries audit action names used by the refresh flow.
type RefreshEvents struct {
	Success string
	Failure string
}

// RefreshDeps captures refresh dependencies. FindSession and GetAccountByID return (nil, nil)
// when the row does not exist.
type RefreshDeps struct {
	RefreshLifetime time.Duration
	Now             func() time.Time

	VerifyRefresh  func(token string) (*jwt.Claims, error)
	FindSession    func(ctx context.Context, token string) (*session.Session, error)
	DeleteSession  func(ctx context.Context, token string) (bool, error)
	CreateSession  func(ctx context.Context, adminID int64, refreshToken string, expiresAt time.Time) error
	GetAccountByID func(ctx context.Context, id int64) (*Account, error)
	IssueTokens    func(acct Account, refreshLifetime time.Duration) (TokenPair, error)

	EmitAudit func(context.Context, AuditRecord)
	MetricInc func(int)
	Warn      func(string, ...any)

	Metrics RefreshMetrics
	Events  RefreshEvents
}

// RunRefresh exchanges a refresh token for a new pair. The presented token is single-use: its
// session row is deleted before the replacement is written, and a caller that finds nothing to
// delete lost a concurrent rotation and gets SessionNotFound.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
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
	if deps.VerifyRefresh == nil ||
		deps.FindSession == nil ||
		deps.DeleteSession == nil ||
		deps.CreateSession == nil ||
		deps.GetAccountByID == nil ||
		deps.IssueTokens == nil {
		return RefreshResult{Failure: FailureInternal, Err: ErrNotReady}
	}

	fail := func(kind Failure, adminID int64, reason string) RefreshResult {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.Failure, AdminID: adminID, Reason: reason})
		return RefreshResult{Failure: kind, AdminID: adminID}
	}

	if token == "" {
		return fail(FailureMissingToken, 0, "missing_token")
	}

	claims, err := deps.VerifyRefresh(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			if _, delErr := deps.DeleteSession(ctx, token); delErr != nil {
				deps.Warn("refresh: cleanup of expired session failed", "error", delErr)
			}
			return fail(FailureInvalidToken, 0, "token_expired")
		}
		return fail(FailureInvalidToken, 0, "token_invalid")
	}

	sess, err := deps.FindSession(ctx, token)
	if err != nil {
		return RefreshResult{Failure: FailureInternal, Err: err, AdminID: claims.UserID}
	}
	if sess == nil {
		return fail(FailureSessionNotFound, claims.UserID, "session_not_found")
	}

	if sess.Expired(deps.Now()) {
		if _, err := deps.DeleteSession(ctx, token); err != nil {
			return RefreshResult{Failure: FailureInternal, Err: err, AdminID: sess.AdminID}
		}
		deps.MetricInc(deps.Metrics.SessionDeleted)
		return fail(FailureSessionExpired, sess.AdminID, "session_expired")
	}

	acct, err := deps.GetAccountByID(ctx, sess.AdminID)
	if err != nil {
		return RefreshResult{Failure: FailureInternal, Err: err, AdminID: sess.AdminID}
	}
	if acct == nil || !acct.Active {
		if _, err := deps.DeleteSession(ctx, token); err != nil {
			return RefreshResult{Failure: FailureInternal, Err: err, AdminID: sess.AdminID}
		}
		deps.MetricInc(deps.Metrics.SessionDeleted)
		return fail(FailureUserInactive, sess.AdminID, "user_inactive")
	}

	deleted, err := deps.DeleteSession(ctx, token)
	if err != nil {
		return RefreshResult{Failure: FailureInternal, Err: err, AdminID: acct.ID}
	}
	if !deleted {
		return fail(FailureSessionNotFound, acct.ID, "session_already_rotated")
	}
	deps.MetricInc(deps.Metrics.SessionDeleted)

	tokens, err := deps.IssueTokens(*acct, deps.RefreshLifetime)
	if err != nil {
		return RefreshResult{Failure: FailureInternal, Err: err, AdminID: acct.ID}
	}
	if err := deps.CreateSession(ctx, acct.ID, tokens.RefreshToken, tokens.RefreshExpiresAt); err != nil {
		return RefreshResult{Failure: FailureInternal, Err: err, AdminID: acct.ID}
	}
	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.Success, AdminID: acct.ID, Success: true})

	return RefreshResult{AdminID: acct.ID, User: acct.Public(), Tokens: tokens}
}
