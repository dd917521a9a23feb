//go:build integration
// +build integration

package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const integrationPassword = "integration-password-1"

type integrationEnv struct {
	engine *folioauth.Engine
	db     *sqlx.DB
	redis  *miniredis.Miniredis
	rdb    *redis.Client
}

// newIntegrationEnv wires the engine the way the serve command does: SQL credentials and
// sessions on a file-backed sqlite database, lockout and blacklist in redis.
func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()
	ctx := context.Background()

	db, err := stores.OpenAndMigrate(ctx, stores.DriverSQLite, filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := folioauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("integration-secret-integration-secret")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Audit.Enabled = false

	engine, err := folioauth.New().
		WithConfig(cfg).
		WithCredentialStore(folioauth.NewSQLCredentialStore(db)).
		WithSessionStore(folioauth.NewSQLSessionStore(db)).
		WithLockoutStore(folioauth.NewRedisLockoutStore(rdb, "it:rl:")).
		WithBlacklist(folioauth.NewRedisBlacklist(rdb, "it:bl:")).
		WithAuditSink(folioauth.NewSQLAuditSink(db, nil)).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
		_ = db.Close()
	})
	return &integrationEnv{engine: engine, db: db, redis: mr, rdb: rdb}
}

func (e *integrationEnv) seedAdmin(t *testing.T, username, role string) int64 {
	t.Helper()
	hash, err := e.engine.HashPassword(integrationPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	a := &stores.Admin{Username: username, Email: username + "@example.com", PasswordHash: hash, Role: role, IsActive: true}
	if err := stores.NewAdmins(e.db).Create(context.Background(), a); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return a.ID
}

func (e *integrationEnv) login(t *testing.T, ip, username, password string) folioauth.Result {
	t.Helper()
	ctx := folioauth.WithClientIP(context.Background(), ip)
	return e.engine.Login(ctx, folioauth.LoginRequest{
		Username:   username,
		Password:   password,
		CSRFToken:  "it-csrf",
		CSRFCookie: "it-csrf",
	})
}
