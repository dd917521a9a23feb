package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/internal/httpapi"
	"github.com/MrEthical07/folioauth/internal/stores"
)

func setDefaults(v *viper.Viper) {
	def := folioauth.DefaultConfig()
	srv := httpapi.DefaultConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", stores.DriverSQLite)
	v.SetDefault("database.dsn", "folioauth.db")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.prefix", "folioauth")

	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.shutdown_timeout", srv.ShutdownTimeout)
	v.SetDefault("server.cors_origins", srv.CORSOrigins)
	v.SetDefault("server.max_body_size", srv.MaxBodySize)
	v.SetDefault("server.login_rate_per_minute", srv.LoginRatePerMinute)
	v.SetDefault("server.trust_proxy_headers", srv.TrustProxyHeaders)

	v.SetDefault("jwt.signing_method", def.JWT.SigningMethod)
	v.SetDefault("jwt.issuer", def.JWT.Issuer)
	v.SetDefault("jwt.leeway", def.JWT.Leeway)

	v.SetDefault("session.access_ttl", def.Session.AccessTTL)
	v.SetDefault("session.refresh_ttl", def.Session.RefreshTTL)
	v.SetDefault("session.remember_ttl", def.Session.RememberTTL)

	v.SetDefault("lockout.max_attempts", def.Lockout.MaxAttempts)
	v.SetDefault("lockout.block_duration", def.Lockout.BlockDuration)
	v.SetDefault("lockout.window", def.Lockout.Window)
	v.SetDefault("lockout.reset_on_success", def.Lockout.ResetOnSuccess)
	v.SetDefault("lockout.sweep_interval", def.Lockout.SweepInterval)

	v.SetDefault("cookie.secure", def.Cookie.Secure)
	v.SetDefault("cookie.domain", def.Cookie.Domain)

	v.SetDefault("audit.enabled", def.Audit.Enabled)
	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)
	v.SetDefault("audit.write_timeout", def.Audit.WriteTimeout)

	v.SetDefault("password.min_length", def.Password.MinLength)
	v.SetDefault("password.upgrade_on_login", def.Password.UpgradeOnLogin)

	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
}

// engineConfig maps viper keys onto folioauth.Config and validates the result.
func engineConfig(v *viper.Viper) (folioauth.Config, error) {
	cfg := folioauth.DefaultConfig()

	cfg.JWT.SigningMethod = v.GetString("jwt.signing_method")
	cfg.JWT.Issuer = v.GetString("jwt.issuer")
	cfg.JWT.KeyID = v.GetString("jwt.key_id")
	cfg.JWT.Leeway = v.GetDuration("jwt.leeway")
	switch cfg.JWT.SigningMethod {
	case "ed25519":
		key, err := readKeyFile(v.GetString("jwt.private_key_file"))
		if err != nil {
			return cfg, fmt.Errorf("jwt private key: %w", err)
		}
		cfg.JWT.PrivateKey = key
	default:
		cfg.JWT.PrivateKey = []byte(v.GetString("jwt.secret"))
	}

	cfg.Session.AccessTTL = v.GetDuration("session.access_ttl")
	cfg.Session.RefreshTTL = v.GetDuration("session.refresh_ttl")
	cfg.Session.RememberTTL = v.GetDuration("session.remember_ttl")

	cfg.Lockout.MaxAttempts = v.GetInt("lockout.max_attempts")
	cfg.Lockout.BlockDuration = v.GetDuration("lockout.block_duration")
	cfg.Lockout.Window = v.GetDuration("lockout.window")
	cfg.Lockout.ResetOnSuccess = v.GetBool("lockout.reset_on_success")
	cfg.Lockout.SweepInterval = v.GetDuration("lockout.sweep_interval")

	cfg.Cookie.Secure = v.GetBool("cookie.secure")
	cfg.Cookie.Domain = v.GetString("cookie.domain")

	cfg.Audit.Enabled = v.GetBool("audit.enabled")
	cfg.Audit.BufferSize = v.GetInt("audit.buffer_size")
	cfg.Audit.DropIfFull = v.GetBool("audit.drop_if_full")
	cfg.Audit.WriteTimeout = v.GetDuration("audit.write_timeout")

	cfg.Password.MinLength = v.GetInt("password.min_length")
	cfg.Password.UpgradeOnLogin = v.GetBool("password.upgrade_on_login")

	cfg.Metrics.Enabled = v.GetBool("metrics.enabled")

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serverConfig(v *viper.Viper) httpapi.Config {
	return httpapi.Config{
		Host:               v.GetString("server.host"),
		Port:               v.GetInt("server.port"),
		ShutdownTimeout:    v.GetDuration("server.shutdown_timeout"),
		CORSOrigins:        v.GetStringSlice("server.cors_origins"),
		MaxBodySize:        v.GetInt64("server.max_body_size"),
		LoginRatePerMinute: v.GetInt("server.login_rate_per_minute"),
		TrustProxyHeaders:  v.GetBool("server.trust_proxy_headers"),
	}
}

func readKeyFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("jwt.private_key_file is required for ed25519")
	}
	return os.ReadFile(path)
}

func newLogger(v *viper.Viper) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(v.GetString("log.format"), "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func openDB(ctx context.Context, v *viper.Viper) (*sqlx.DB, error) {
	return stores.OpenAndMigrate(ctx, v.GetString("database.driver"), v.GetString("database.dsn"))
}

// runtime is everything serve and sweep need.
type runtime struct {
	db     *sqlx.DB
	redis  *redis.Client
	engine *folioauth.Engine
	logger *slog.Logger
}

func (r *runtime) Close() {
	if r.engine != nil {
		r.engine.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	if r.db != nil {
		_ = r.db.Close()
	}
}

// openRuntime opens the datastore, applies migrations, connects redis when redis.url is set and
// builds the engine. Without redis the lockout records live in SQL and revocations in memory.
func openRuntime(ctx context.Context, v *viper.Viper) (*runtime, error) {
	logger := newLogger(v)
	cfg, err := engineConfig(v)
	if err != nil {
		return nil, err
	}

	rt := &runtime{logger: logger}
	rt.db, err = openDB(ctx, v)
	if err != nil {
		return nil, err
	}

	b := folioauth.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithCredentialStore(folioauth.NewSQLCredentialStore(rt.db)).
		WithSessionStore(folioauth.NewSQLSessionStore(rt.db)).
		WithAuditSink(folioauth.MultiSink{
			folioauth.NewSQLAuditSink(rt.db, logger),
			folioauth.SlogSink{Logger: logger.With("component", "audit")},
		})

	if url := v.GetString("redis.url"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rt.redis = redis.NewClient(opts)
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		prefix := v.GetString("redis.prefix")
		b.WithLockoutStore(folioauth.NewRedisLockoutStore(rt.redis, prefix+":rl:")).
			WithBlacklist(folioauth.NewRedisBlacklist(rt.redis, prefix+":bl:"))
	} else {
		b.WithLockoutStore(folioauth.NewSQLLockoutStore(rt.db))
	}

	rt.engine, err = b.Build()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return rt, nil
}
