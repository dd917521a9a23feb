package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBlockDuration = 30 * time.Minute
	DefaultWindow        = 30 * time.Minute
)

// LockoutConfig holds the lockout policy.
type LockoutConfig struct {
	MaxAttempts   int
	BlockDuration time.Duration
	Window        time.Duration
}

// Lockout tracks failed attempts per identifier and answers whether an identifier is blocked.
// It holds no state of its own; everything lives in the injected Store.
type Lockout struct {
	store  Store
	config LockoutConfig
	now    func() time.Time
}

// NewLockout creates a Lockout. Zero config fields fall back to the Default* constants.
func NewLockout(store Store, cfg LockoutConfig, now func() time.Time) *Lockout {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = DefaultBlockDuration
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Lockout{store: store, config: cfg, now: now}
}

// Identifier builds the composite key "purpose:ip:username".
func Identifier(purpose, ip, username string) string {
	return purpose + ":" + ip + ":" + username
}

// Config returns the effective policy.
func (l *Lockout) Config() LockoutConfig {
	return l.config
}

// IsBlocked reports whether identifier has an active block.
func (l *Lockout) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	rec, err := l.store.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return false, nil
		}
		return false, wrapUnavailable(err)
	}
	return rec.Blocked(l.now()), nil
}

// RecordFailure increments the attempt counter, creating the record on first use. A stale record
// (expired block or elapsed window) is discarded first so counting restarts at one.
//
// The returned record tells the caller whether MaxAttempts has been reached; RecordFailure never
// blocks by itself.
func (l *Lockout) RecordFailure(ctx context.Context, identifier string) (*Record, error) {
	now := l.now()
	rec, err := l.store.Get(ctx, identifier)
	switch {
	case err == nil:
		if rec.Stale(now, l.config.Window) {
			if err := l.store.Delete(ctx, identifier); err != nil {
				return nil, wrapUnavailable(err)
			}
		}
	case errors.Is(err, ErrRecordNotFound):
	default:
		return nil, wrapUnavailable(err)
	}

	rec, err = l.store.Increment(ctx, identifier, now, l.config.Window)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return rec, nil
}

// ReachedLimit reports whether rec has hit the configured maximum.
func (l *Lockout) ReachedLimit(rec *Record) bool {
	return rec != nil && rec.AttemptCount >= l.config.MaxAttempts
}

// Block sets blocked_until = now + d. A non-positive d uses the configured block duration.
func (l *Lockout) Block(ctx context.Context, identifier string, d time.Duration) error {
	if d <= 0 {
		d = l.config.BlockDuration
	}
	now := l.now()
	if err := l.store.Block(ctx, identifier, now, now.Add(d)); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// Reset forgets all failures for identifier.
func (l *Lockout) Reset(ctx context.Context, identifier string) error {
	if err := l.store.Delete(ctx, identifier); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// Attempts returns the current failure count, zero when nothing is tracked.
func (l *Lockout) Attempts(ctx context.Context, identifier string) (int, error) {
	rec, err := l.store.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return 0, nil
		}
		return 0, wrapUnavailable(err)
	}
	return rec.AttemptCount, nil
}

// Sweep deletes records whose block and tracking window have both elapsed.
func (l *Lockout) Sweep(ctx context.Context) (int64, error) {
	n, err := l.store.DeleteStale(ctx, l.now(), l.config.Window)
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return n, nil
}

func wrapUnavailable(err error) error {
	if errors.Is(err, ErrLockoutUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
}
