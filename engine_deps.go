package folioauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/folioauth/internal/csrf"
	"github.com/MrEthical07/folioauth/internal/flows"
	"github.com/MrEthical07/folioauth/jwt"
	"github.com/MrEthical07/folioauth/password"
	"github.com/MrEthical07/folioauth/session"
)

func (e *Engine) buildFlowDeps() flows.Deps {
	warn := func(msg string, args ...any) { e.logger.Warn(msg, args...) }
	metricInc := func(id int) { e.metricInc(MetricID(id)) }

	return flows.Deps{
		Login: flows.LoginDeps{
			RefreshLifetime:      e.config.Session.RefreshTTL,
			RememberLifetime:     e.config.Session.RememberTTL,
			ResetOnSuccess:       e.config.Lockout.ResetOnSuccess,
			ClientIPFromContext:  ClientIPFromContext,
			Now:                  e.now,
			ValidateCSRF:         csrf.Valid,
			IsBlocked:            e.lockout.IsBlocked,
			RecordFailure:        e.recordFailure,
			Block:                e.block,
			ResetFailures:        e.lockout.Reset,
			GetAccountByUsername: e.accountByUsername,
			VerifyPassword:       e.verifyPassword,
			IssueTokens:          e.issueTokens,
			CreateSession:        e.createSession,
			UpgradeHash:          e.upgradeHash,
			EmitAudit:            e.emitAudit,
			MetricInc:            metricInc,
			Warn:                 warn,
			Metrics: flows.LoginMetrics{
				LoginSuccess:     int(MetricLoginSuccess),
				LoginFailure:     int(MetricLoginFailure),
				LoginRateLimited: int(MetricLoginRateLimited),
				LoginLocked:      int(MetricLoginLocked),
				SessionCreated:   int(MetricSessionCreated),
			},
			Events: flows.LoginEvents{
				Success:          AuditLoginSuccess,
				Blocked:          AuditLoginBlocked,
				Locked:           AuditLoginLocked,
				UserNotFound:     AuditLoginUserNotFound,
				InvalidPassword:  AuditLoginInvalidPassword,
				Inactive:         AuditLoginInactive,
				CSRFInvalid:      AuditLoginCSRFInvalid,
				ValidationFailed: AuditLoginValidationFailed,
			},
		},
		Refresh: flows.RefreshDeps{
			RefreshLifetime: e.config.Session.RefreshTTL,
			Now:             e.now,
			VerifyRefresh:   e.jwtManager.VerifyRefresh,
			FindSession:     e.findSession,
			DeleteSession:   e.sessions.DeleteByToken,
			CreateSession:   e.createSession,
			GetAccountByID:  e.accountByID,
			IssueTokens:     e.issueTokens,
			EmitAudit:       e.emitAudit,
			MetricInc:       metricInc,
			Warn:            warn,
			Metrics: flows.RefreshMetrics{
				RefreshSuccess: int(MetricRefreshSuccess),
				RefreshFailure: int(MetricRefreshFailure),
				SessionCreated: int(MetricSessionCreated),
				SessionDeleted: int(MetricSessionDeleted),
			},
			Events: flows.RefreshEvents{
				Success: AuditTokenRefresh,
				Failure: AuditTokenRefreshFailed,
			},
		},
		Logout: flows.LogoutDeps{
			Now:           e.now,
			Leeway:        e.jwtManager.Leeway(),
			Verify:        e.jwtManager.Verify,
			Blacklist:     e.blacklist.Add,
			DeleteSession: e.sessions.DeleteByToken,
			EmitAudit:     e.emitAudit,
			MetricInc:     metricInc,
			Warn:          warn,
			Metrics: flows.LogoutMetrics{
				Logout:           int(MetricLogout),
				SessionDeleted:   int(MetricSessionDeleted),
				BlacklistAdded:   int(MetricBlacklistAdded),
				BlacklistFailure: int(MetricBlacklistFailure),
			},
			LogoutEvent: AuditLogout,
		},
		Authenticate: flows.AuthenticateDeps{
			VerifyAccess:  e.jwtManager.VerifyAccess,
			IsBlacklisted: e.blacklist.Contains,
		},
	}
}

func (e *Engine) recordFailure(ctx context.Context, identifier string) (int, bool, error) {
	rec, err := e.lockout.RecordFailure(ctx, identifier)
	if err != nil {
		return 0, false, err
	}
	return rec.AttemptCount, e.lockout.ReachedLimit(rec), nil
}

func (e *Engine) block(ctx context.Context, identifier string) error {
	return e.lockout.Block(ctx, identifier, e.config.Lockout.BlockDuration)
}

func (e *Engine) accountByUsername(ctx context.Context, username string) (*flows.Account, error) {
	rec, err := e.credentials.GetByUsername(ctx, username)
	return toAccount(rec, err)
}

func (e *Engine) accountByID(ctx context.Context, id int64) (*flows.Account, error) {
	rec, err := e.credentials.GetByID(ctx, id)
	return toAccount(rec, err)
}

func toAccount(rec AdminRecord, err error) (*flows.Account, error) {
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flows.Account{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		Role:         string(rec.Role),
		PasswordHash: rec.PasswordHash,
		Active:       rec.Active,
	}, nil
}

// verifyPassword treats an over-long candidate as a mismatch rather than an internal error.
func (e *Engine) verifyPassword(plain, hash string) (bool, error) {
	ok, err := e.hasher.Verify(plain, hash)
	if errors.Is(err, password.ErrPasswordPolicy) {
		return false, nil
	}
	return ok, err
}

func (e *Engine) issueTokens(acct flows.Account, lifetime time.Duration) (flows.TokenPair, error) {
	id := jwt.Identity{UserID: acct.ID, Username: acct.Username, Email: acct.Email, Role: acct.Role}
	now := e.now()

	access, err := e.jwtManager.IssueAccess(id)
	if err != nil {
		return flows.TokenPair{}, err
	}
	refresh, err := e.jwtManager.IssueRefresh(id, lifetime)
	if err != nil {
		return flows.TokenPair{}, err
	}
	return flows.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  now.Add(e.jwtManager.AccessTTL()),
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(lifetime),
	}, nil
}

func (e *Engine) createSession(ctx context.Context, adminID int64, token string, expiresAt time.Time) error {
	return e.sessions.Create(ctx, &session.Session{
		AdminID:      adminID,
		RefreshToken: token,
		ExpiresAt:    expiresAt,
		CreatedAt:    e.now(),
	})
}

func (e *Engine) findSession(ctx context.Context, token string) (*session.Session, error) {
	s, err := e.sessions.FindByToken(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// upgradeHash rewrites bcrypt or outdated argon2id hashes after a successful login. Failures
// only cost the upgrade.
func (e *Engine) upgradeHash(ctx context.Context, acct flows.Account, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	updater, ok := e.credentials.(PasswordHashUpdater)
	if !ok {
		return
	}
	stale, err := e.hasher.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !stale {
		return
	}
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		e.logger.DebugContext(ctx, "password hash upgrade skipped", "admin_id", acct.ID, "error", err)
		return
	}
	if err := updater.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade failed", "admin_id", acct.ID, "error", err)
	}
}
