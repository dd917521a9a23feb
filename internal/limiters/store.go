package limiters

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRecordNotFound is returned by Store.Get when no failures are tracked for an identifier.
	ErrRecordNotFound = errors.New("rate limit record not found")
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// Record is the failure bookkeeping kept for one identifier.
type Record struct {
	Identifier     string     `db:"identifier"`
	AttemptCount   int        `db:"attempt_count"`
	FirstAttemptAt time.Time  `db:"first_attempt_at"`
	LastAttemptAt  time.Time  `db:"last_attempt_at"`
	BlockedUntil   *time.Time `db:"blocked_until"`
}

// Blocked reports whether a block is set and still in the future.
func (r *Record) Blocked(now time.Time) bool {
	return r != nil && r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// Stale reports whether the record no longer influences decisions: either its block has run out,
// or it was never blocked and its tracking window has elapsed.
func (r *Record) Stale(now time.Time, window time.Duration) bool {
	if r == nil {
		return true
	}
	if r.BlockedUntil != nil {
		return !now.Before(*r.BlockedUntil)
	}
	return now.Sub(r.FirstAttemptAt) >= window
}

// Store persists Records. Implementations must make Increment atomic per identifier; cross-call
// races (two concurrent failures reading the same count) are tolerated by the Lockout.
type Store interface {
	Get(ctx context.Context, identifier string) (*Record, error)
	Increment(ctx context.Context, identifier string, now time.Time, window time.Duration) (*Record, error)
	Block(ctx context.Context, identifier string, now, until time.Time) error
	Delete(ctx context.Context, identifier string) error
	DeleteStale(ctx context.Context, now time.Time, window time.Duration) (int64, error)
}
