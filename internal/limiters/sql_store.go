package limiters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps Records in the rate_limits table of the relational datastore.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps db. The rate_limits table is created by the schema migrations.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const selectRecord = `SELECT identifier, attempt_count, first_attempt_at, last_attempt_at, blocked_until
FROM rate_limits WHERE identifier = ?`

func (s *SQLStore) Get(ctx context.Context, identifier string) (*Record, error) {
	var rec Record
	if err := s.db.GetContext(ctx, &rec, s.db.Rebind(selectRecord), identifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get rate limit %q: %w", identifier, err)
	}
	return &rec, nil
}

func (s *SQLStore) Increment(ctx context.Context, identifier string, now time.Time, _ time.Duration) (*Record, error) {
	now = now.UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO rate_limits (identifier, attempt_count, first_attempt_at, last_attempt_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (identifier) DO UPDATE SET
			attempt_count = rate_limits.attempt_count + 1,
			last_attempt_at = excluded.last_attempt_at`),
		identifier, now, now)
	if err != nil {
		return nil, fmt.Errorf("increment rate limit %q: %w", identifier, err)
	}
	return s.Get(ctx, identifier)
}

func (s *SQLStore) Block(ctx context.Context, identifier string, now, until time.Time) error {
	now, until = now.UTC(), until.UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO rate_limits (identifier, attempt_count, first_attempt_at, last_attempt_at, blocked_until)
		VALUES (?, 0, ?, ?, ?)
		ON CONFLICT (identifier) DO UPDATE SET blocked_until = excluded.blocked_until`),
		identifier, now, now, until)
	if err != nil {
		return fmt.Errorf("block %q: %w", identifier, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, identifier string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM rate_limits WHERE identifier = ?`), identifier); err != nil {
		return fmt.Errorf("delete rate limit %q: %w", identifier, err)
	}
	return nil
}

// DeleteStale evaluates staleness in Go so the same predicate holds for every SQL dialect. Rows
// whose attempt_count moved since the scan are left alone.
func (s *SQLStore) DeleteStale(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	var recs []Record
	err := s.db.SelectContext(ctx, &recs,
		`SELECT identifier, attempt_count, first_attempt_at, last_attempt_at, blocked_until FROM rate_limits`)
	if err != nil {
		return 0, fmt.Errorf("list rate limits: %w", err)
	}

	var deleted int64
	for i := range recs {
		if !recs[i].Stale(now, window) {
			continue
		}
		res, err := s.db.ExecContext(ctx, s.db.Rebind(
			`DELETE FROM rate_limits WHERE identifier = ? AND attempt_count = ?`),
			recs[i].Identifier, recs[i].AttemptCount)
		if err != nil {
			return deleted, fmt.Errorf("delete stale rate limit %q: %w", recs[i].Identifier, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}
	return deleted, nil
}
