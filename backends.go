package folioauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/folioauth/blacklist"
	"github.com/MrEthical07/folioauth/internal/limiters"
	"github.com/MrEthical07/folioauth/internal/stores"
	"github.com/MrEthical07/folioauth/session"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// sqlCredentialStore adapts the admin_users table to CredentialStore.
type sqlCredentialStore struct {
	admins *stores.Admins
}

// NewSQLCredentialStore reads admins from the admin_users table. It also implements
// PasswordHashUpdater.
func NewSQLCredentialStore(db *sqlx.DB) CredentialStore {
	return &sqlCredentialStore{admins: stores.NewAdmins(db)}
}

func (s *sqlCredentialStore) GetByUsername(ctx context.Context, username string) (AdminRecord, error) {
	a, err := s.admins.GetByUsername(ctx, username)
	return adminRecord(a, err)
}

func (s *sqlCredentialStore) GetByID(ctx context.Context, id int64) (AdminRecord, error) {
	a, err := s.admins.GetByID(ctx, id)
	return adminRecord(a, err)
}

func (s *sqlCredentialStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.admins.UpdatePasswordHash(ctx, id, hash)
}

func adminRecord(a *stores.Admin, err error) (AdminRecord, error) {
	if err != nil {
		if errors.Is(err, stores.ErrAdminNotFound) {
			return AdminRecord{}, ErrUserNotFound
		}
		return AdminRecord{}, err
	}
	return AdminRecord{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         Role(a.Role),
		Active:       a.IsActive,
	}, nil
}

// NewSQLSessionStore keeps refresh sessions in the admin_sessions table.
func NewSQLSessionStore(db *sqlx.DB) *session.Store {
	return session.NewStore(db)
}

// NewSQLLockoutStore keeps failed-attempt records in the rate_limits table.
func NewSQLLockoutStore(db *sqlx.DB) LockoutStore {
	return limiters.NewSQLStore(db)
}

// NewRedisLockoutStore keeps failed-attempt records in redis hashes that expire on their own.
func NewRedisLockoutStore(client redis.UniversalClient, prefix string) LockoutStore {
	return limiters.NewRedisStore(client, prefix)
}

// NewRedisBlacklist stores revoked token hashes in redis with the token's remaining lifetime.
func NewRedisBlacklist(client redis.UniversalClient, prefix string) *blacklist.Redis {
	return blacklist.NewRedis(client, prefix)
}

// NewMemoryBlacklist keeps revocations in process memory. Suitable for a single instance.
func NewMemoryBlacklist(now func() time.Time) *blacklist.Memory {
	return blacklist.NewMemory(now)
}

// NewSQLAuditSink writes audit events to the admin_logs table.
func NewSQLAuditSink(db *sqlx.DB, logger *slog.Logger) AuditSink {
	return stores.NewAuditLog(db, logger)
}
