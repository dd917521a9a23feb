package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by FindByToken when no row holds the token.
var ErrNotFound = errors.New("session not found")

// Store persists sessions in the admin_sessions table. Every method is a single statement, so
// each call is atomic on its own row; nothing spans a transaction.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Create inserts s and fills in its ID. CreatedAt defaults to the current time.
func (st *Store) Create(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	q := st.db.Rebind(`INSERT INTO admin_sessions (admin_id, refresh_token, expires_at, created_at)
		VALUES (?, ?, ?, ?) RETURNING id`)
	if err := st.db.QueryRowxContext(ctx, q, s.AdminID, s.RefreshToken, s.ExpiresAt.UTC(), s.CreatedAt.UTC()).Scan(&s.ID); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindByToken returns the session holding exactly token.
func (st *Store) FindByToken(ctx context.Context, token string) (*Session, error) {
	var s Session
	q := st.db.Rebind(`SELECT id, admin_id, refresh_token, expires_at, created_at
		FROM admin_sessions WHERE refresh_token = ?`)
	if err := st.db.GetContext(ctx, &s, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &s, nil
}

// DeleteByToken removes the row holding token and reports whether a row was removed. Two
// concurrent callers with the same token see exactly one true.
func (st *Store) DeleteByToken(ctx context.Context, token string) (bool, error) {
	res, err := st.db.ExecContext(ctx, st.db.Rebind(`DELETE FROM admin_sessions WHERE refresh_token = ?`), token)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}

// ListByAdmin returns the admin's sessions, newest first.
func (st *Store) ListByAdmin(ctx context.Context, adminID int64) ([]Session, error) {
	var out []Session
	q := st.db.Rebind(`SELECT id, admin_id, refresh_token, expires_at, created_at
		FROM admin_sessions WHERE admin_id = ? ORDER BY id DESC`)
	if err := st.db.SelectContext(ctx, &out, q, adminID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// DeleteExpired removes sessions whose expires_at is at or before now.
func (st *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := st.db.ExecContext(ctx, st.db.Rebind(`DELETE FROM admin_sessions WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
