package flows

import (
	"context"
	"strconv"
	"time"
)

// LoginRequest carries the credentials and anti-forgery pair of one attempt.
type LoginRequest struct {
	Username   string
	Password   string
	RememberMe bool
	CSRFToken  string
	CSRFCookie string
}

// LoginResult is the outcome of RunLogin.
type LoginResult struct {
	Failure    Failure
	Err        error
	Identifier string
	Attempts   int
	Locked     bool
	User       User
	Tokens     TokenPair
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	LoginLocked      int
	SessionCreated   int
}

// LoginEvents carries audit action names used by the login flow.
type LoginEvents struct {
	Success          string
	Blocked          string
	Locked           string
	UserNotFound     string
	InvalidPassword  string
	Inactive         string
	CSRFInvalid      string
	ValidationFailed string
}

// LoginDeps captures login dependencies. GetAccountByUsername returns (nil, nil) for unknown users.
type LoginDeps struct {
	RefreshLifetime  time.Duration
	RememberLifetime time.Duration
	ResetOnSuccess   bool

	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	ValidateCSRF         func(token, cookie string) bool
	IsBlocked            func(ctx context.Context, identifier string) (bool, error)
	RecordFailure        func(ctx context.Context, identifier string) (attempts int, limitReached bool, err error)
	Block                func(ctx context.Context, identifier string) error
	ResetFailures        func(ctx context.Context, identifier string) error
	GetAccountByUsername func(ctx context.Context, username string) (*Account, error)
	VerifyPassword       func(password, hash string) (bool, error)
	IssueTokens          func(acct Account, refreshLifetime time.Duration) (TokenPair, error)
	CreateSession        func(ctx context.Context, adminID int64, refreshToken string, expiresAt time.Time) error
	UpgradeHash          func(ctx context.Context, acct Account, password string)

	EmitAudit func(context.Context, AuditRecord)
	MetricInc func(int)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
}

// RunLogin walks CSRF check, lockout check, credential check, active check, token issuance and
// session persistence in that order. The first failing step ends the attempt.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) LoginResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
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
	if deps.ValidateCSRF == nil ||
		deps.IsBlocked == nil ||
		deps.RecordFailure == nil ||
		deps.Block == nil ||
		deps.GetAccountByUsername == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueTokens == nil ||
		deps.CreateSession == nil {
		return LoginResult{Failure: FailureInternal, Err: ErrNotReady}
	}

	identifier := LoginIdentifier(deps.ClientIPFromContext(ctx), req.Username)
	details := map[string]string{"username": req.Username}

	if !deps.ValidateCSRF(req.CSRFToken, req.CSRFCookie) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.CSRFInvalid, Reason: "csrf_mismatch", Details: details})
		return LoginResult{Failure: FailureCSRFInvalid, Identifier: identifier}
	}

	if req.Username == "" || req.Password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.ValidationFailed, Reason: "missing_fields", Details: details})
		return LoginResult{Failure: FailureValidation, Identifier: identifier}
	}

	blocked, err := deps.IsBlocked(ctx, identifier)
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, Identifier: identifier}
	}
	if blocked {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.Blocked, Reason: "identifier_blocked", Details: details})
		return LoginResult{Failure: FailureRateLimited, Identifier: identifier}
	}

	acct, err := deps.GetAccountByUsername(ctx, req.Username)
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, Identifier: identifier}
	}
	if acct == nil {
		return rejectCredentials(ctx, deps, identifier, deps.Events.UserNotFound, 0, details)
	}

	ok, err := deps.VerifyPassword(req.Password, acct.PasswordHash)
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, Identifier: identifier}
	}
	if !ok {
		return rejectCredentials(ctx, deps, identifier, deps.Events.InvalidPassword, acct.ID, details)
	}

	if !acct.Active {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.Inactive, AdminID: acct.ID, Reason: "account_inactive", Details: details})
		return LoginResult{Failure: FailureAccountInactive, Identifier: identifier}
	}

	lifetime := deps.RefreshLifetime
	if req.RememberMe {
		lifetime = deps.RememberLifetime
	}
	tokens, err := deps.IssueTokens(*acct, lifetime)
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, Identifier: identifier}
	}
	if err := deps.CreateSession(ctx, acct.ID, tokens.RefreshToken, tokens.RefreshExpiresAt); err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, Identifier: identifier}
	}
	deps.MetricInc(deps.Metrics.SessionCreated)

	if deps.ResetOnSuccess && deps.ResetFailures != nil {
		if err := deps.ResetFailures(ctx, identifier); err != nil {
			deps.Warn("login: reset of failure counter failed", "identifier", identifier, "error", err)
		}
	}

	if deps.UpgradeHash != nil {
		deps.UpgradeHash(ctx, *acct, req.Password)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	details["remember_me"] = strconv.FormatBool(req.RememberMe)
	deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.Success, AdminID: acct.ID, Success: true, Details: details})

	return LoginResult{
		Identifier: identifier,
		User:       acct.Public(),
		Tokens:     tokens,
	}
}

// rejectCredentials is the shared path for unknown users and wrong passwords: count the failure,
// lock the identifier when the threshold is reached, and answer InvalidCredentials either way.
func rejectCredentials(ctx context.Context, deps LoginDeps, identifier, action string, adminID int64, details map[string]string) LoginResult {
	attempts, reached, err := deps.RecordFailure(ctx, identifier)
	if err != nil {
		return LoginResult{Failure: FailureInternal, Err: err, Identifier: identifier}
	}
	res := LoginResult{Failure: FailureInvalidCredentials, Identifier: identifier, Attempts: attempts}
	details["attempts"] = strconv.Itoa(attempts)

	if reached {
		if err := deps.Block(ctx, identifier); err != nil {
			return LoginResult{Failure: FailureInternal, Err: err, Identifier: identifier, Attempts: attempts}
		}
		res.Locked = true
		deps.MetricInc(deps.Metrics.LoginLocked)
		deps.EmitAudit(ctx, AuditRecord{Action: deps.Events.Locked, AdminID: adminID, Reason: "max_attempts", Details: details})
	}

	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, AuditRecord{Action: action, AdminID: adminID, Reason: "invalid_credentials", Details: details})
	return res
}
