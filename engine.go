package folioauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/folioauth/internal/audit"
	"github.com/MrEthical07/folioauth/internal/flows"
	"github.com/MrEthical07/folioauth/internal/limiters"
	"github.com/MrEthical07/folioauth/jwt"
	"github.com/MrEthical07/folioauth/password"
)

// Engine runs the admin login, refresh, logout and authenticate flows. Build one with New and
// share it; all methods are safe for concurrent use.
type Engine struct {
	config      Config
	logger      *slog.Logger
	now         func() time.Time
	jwtManager  *jwt.Manager
	hasher      *password.Multi
	credentials CredentialStore
	sessions    SessionStore
	lockout     *limiters.Lockout
	blacklist   Blacklist
	audit       AuditSink
	dispatcher  *internalaudit.Dispatcher
	metrics     *Metrics
	flows       flows.Service

	sweepMu     sync.Mutex
	sweeper     *limiters.Sweeper
	stopSweeper context.CancelFunc
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Close stops the sweeper and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.sweepMu.Lock()
	if e.stopSweeper != nil {
		e.stopSweeper()
		e.sweeper.Wait()
		e.stopSweeper = nil
	}
	e.sweepMu.Unlock()
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}

// AuditDropped reports audit events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.auditDropped()
}

// MetricsSnapshot returns current counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Login checks CSRF, lockout and credentials and, on success, issues a token pair and persists
// the refresh session. Client IP and user agent are read from ctx (see WithClientIP).
func (e *Engine) Login(ctx context.Context, req LoginRequest) Result {
	if !e.ready() {
		return Result{Kind: KindInternal, Err: ErrEngineNotReady}
	}
	start := time.Now()
	res := e.flows.Login(ctx, flows.LoginRequest{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		CSRFToken:  req.CSRFToken,
		CSRFCookie: req.CSRFCookie,
	})
	e.metrics.Observe(MetricLoginLatency, time.Since(start))

	if res.Failure == KindInternal {
		e.logger.ErrorContext(ctx, "login failed", "identifier", res.Identifier, "error", res.Err)
	}
	return Result{Kind: res.Failure, User: res.User, Tokens: toTokens(res.Tokens), Err: res.Err}
}

// Refresh rotates a refresh token. The presented token is consumed whether or not a new pair is
// issued, and at most one of several concurrent callers with the same token succeeds.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) Result {
	if !e.ready() {
		return Result{Kind: KindInternal, Err: ErrEngineNotReady}
	}
	start := time.Now()
	res := e.flows.Refresh(ctx, refreshToken)
	e.metrics.Observe(MetricRefreshLatency, time.Since(start))

	if res.Failure == KindInternal {
		e.logger.ErrorContext(ctx, "refresh failed", "admin_id", res.AdminID, "error", res.Err)
	}
	return Result{Kind: res.Failure, User: res.User, Tokens: toTokens(res.Tokens), Err: res.Err}
}

// Logout revokes whatever tokens are presented. It never fails; backend errors are logged.
func (e *Engine) Logout(ctx context.Context, req LogoutRequest) LogoutResult {
	if !e.ready() {
		return LogoutResult{}
	}
	res := e.flows.Logout(ctx, flows.LogoutRequest{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	})
	return LogoutResult{
		AdminID:        res.AdminID,
		AccessRevoked:  res.AccessRevoked,
		RefreshRevoked: res.RefreshRevoked,
		SessionDeleted: res.SessionDeleted,
	}
}

// Authenticate accepts a verified, non-revoked access token and returns its admin.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) Result {
	if !e.ready() {
		return Result{Kind: KindInternal, Err: ErrEngineNotReady}
	}
	res := e.flows.Authenticate(ctx, accessToken)
	if res.Failure != KindNone {
		e.metricInc(MetricAuthenticateRejected)
		if res.Failure == KindInternal {
			e.logger.ErrorContext(ctx, "authenticate failed", "error", res.Err)
		}
		return Result{Kind: res.Failure, Err: res.Err}
	}
	id := res.Claims.Identity()
	return Result{User: User{ID: id.UserID, Username: id.Username, Email: id.Email, Role: id.Role}}
}

// HashPassword hashes a new admin password with the configured argon2id parameters.
func (e *Engine) HashPassword(plain string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plain)
}

// StartSweeper launches the background cleanup of stale lockout records, expired sessions and,
// for in-memory blacklists, expired entries. It is a no-op when already running or when
// Lockout.SweepInterval is zero.
func (e *Engine) StartSweeper(ctx context.Context) {
	if !e.ready() || e.config.Lockout.SweepInterval <= 0 {
		return
	}
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	if e.stopSweeper != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.stopSweeper = cancel
	e.sweeper.Start(ctx)
}

// Sweep runs every cleanup task once and returns rows removed per task.
func (e *Engine) Sweep(ctx context.Context) map[string]int64 {
	if !e.ready() {
		return map[string]int64{}
	}
	return e.sweeper.RunOnce(ctx)
}

func (e *Engine) newSweeper() *limiters.Sweeper {
	s := limiters.NewSweeper(e.config.Lockout.SweepInterval, e.logger)
	s.Add("rate_limits", e.countSweep(e.lockout.Sweep))
	s.Add("sessions", e.countSweep(func(ctx context.Context) (int64, error) {
		return e.sessions.DeleteExpired(ctx, e.now())
	}))
	if p, ok := e.blacklist.(interface {
		Purge(context.Context) (int64, error)
	}); ok {
		s.Add("blacklist", e.countSweep(p.Purge))
	}
	return s
}

func (e *Engine) countSweep(fn limiters.SweepFunc) limiters.SweepFunc {
	return func(ctx context.Context) (int64, error) {
		n, err := fn(ctx)
		if err == nil && n > 0 && e.metrics != nil {
			e.metrics.Add(MetricSweepDeleted, uint64(n))
		}
		return n, err
	}
}

func toTokens(p flows.TokenPair) Tokens {
	return Tokens{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
