package folioauth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/folioauth/blacklist"
	internalaudit "github.com/MrEthical07/folioauth/internal/audit"
	"github.com/MrEthical07/folioauth/internal/flows"
	"github.com/MrEthical07/folioauth/internal/limiters"
	"github.com/MrEthical07/folioauth/jwt"
	"github.com/MrEthical07/folioauth/password"
)

// Builder collects the engine's collaborators. Configure it once during startup; Build may only
// be called once.
type Builder struct {
	config Config

	credentials  CredentialStore
	sessions     SessionStore
	lockoutStore LockoutStore
	blacklist    Blacklist
	auditSink    AuditSink
	logger       *slog.Logger
	now          func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.credentials = s
	return b
}

func (b *Builder) WithSessionStore(s SessionStore) *Builder {
	b.sessions = s
	return b
}

func (b *Builder) WithLockoutStore(s LockoutStore) *Builder {
	b.lockoutStore = s
	return b
}

// WithBlacklist sets the revocation store. Without one the engine keeps revocations in process
// memory, which does not survive restarts or span replicas.
func (b *Builder) WithBlacklist(bl Blacklist) *Builder {
	b.blacklist = bl
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for token issuance, session expiry and lockout windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if b.sessions == nil {
		return nil, errors.New("session store required")
	}
	if b.lockoutStore == nil {
		return nil, errors.New("lockout store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	bl := b.blacklist
	if bl == nil {
		logger.Warn("no blacklist configured, revocations are kept in memory")
		bl = blacklist.NewMemory(now)
	}

	engine := &Engine{
		config:      cfg,
		logger:      logger,
		now:         now,
		credentials: b.credentials,
		sessions:    b.sessions,
		blacklist:   bl,
		metrics:     NewMetrics(cfg.Metrics),
		lockout: limiters.NewLockout(b.lockoutStore, limiters.LockoutConfig{
			MaxAttempts:   cfg.Lockout.MaxAttempts,
			BlockDuration: cfg.Lockout.BlockDuration,
			Window:        cfg.Lockout.Window,
		}, now),
	}

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NoOpSink{}
	}
	engine.audit = sink
	if d := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		WriteTimeout: cfg.Audit.WriteTimeout,
	}, sink); d != nil {
		engine.dispatcher = d
		engine.audit = d
	}

	argon, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinPasswordBytes: cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}
	legacy, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	engine.hasher = &password.Multi{Primary: argon, Legacy: legacy}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.Session.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		KeyID:         cfg.JWT.KeyID,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	engine.flows = flows.New(engine.buildFlowDeps())
	engine.sweeper = engine.newSweeper()

	b.built = true
	return engine, nil
}
