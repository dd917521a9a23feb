package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/folioauth/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := stores.OpenAndMigrate(context.Background(), stores.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db)
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, NewRedisStore(rdb, "")
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("sql", func(t *testing.T) { fn(t, newSQLStore(t)) })
	t.Run("redis", func(t *testing.T) {
		_, store := newRedisStore(t)
		fn(t, store)
	})
}

func TestLockoutBlocksAtThreshold(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
		l := NewLockout(store, LockoutConfig{}, clock.Now)
		id := Identifier("login", "9.9.9.9", "bob")

		for i := 1; i <= 3; i++ {
			rec, err := l.RecordFailure(ctx, id)
			if err != nil {
				t.Fatalf("record failure: %v", err)
			}
			if rec.AttemptCount != i {
				t.Fatalf("expected count %d, got %d", i, rec.AttemptCount)
			}
			if got := l.ReachedLimit(rec); got != (i == 3) {
				t.Fatalf("attempt %d: ReachedLimit=%v", i, got)
			}
		}

		if blocked, _ := l.IsBlocked(ctx, id); blocked {
			t.Fatalf("RecordFailure must not block by itself")
		}
		if err := l.Block(ctx, id, 0); err != nil {
			t.Fatalf("block: %v", err)
		}
		if blocked, err := l.IsBlocked(ctx, id); err != nil || !blocked {
			t.Fatalf("expected blocked (err %v)", err)
		}

		clock.Advance(30*time.Minute - time.Second)
		if blocked, _ := l.IsBlocked(ctx, id); !blocked {
			t.Fatalf("expected still blocked just before expiry")
		}
		clock.Advance(time.Second)
		if blocked, _ := l.IsBlocked(ctx, id); blocked {
			t.Fatalf("expected block to end at blocked_until")
		}

		// An expired block is discarded and counting restarts.
		rec, err := l.RecordFailure(ctx, id)
		if err != nil || rec.AttemptCount != 1 || rec.BlockedUntil != nil {
			t.Fatalf("expected fresh record after expired block, got %+v (%v)", rec, err)
		}
	})
}

func TestLockoutWindowRestartsCount(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
		l := NewLockout(store, LockoutConfig{Window: 10 * time.Minute}, clock.Now)
		id := Identifier("login", "1.2.3.4", "alice")

		for i := 0; i < 2; i++ {
			if _, err := l.RecordFailure(ctx, id); err != nil {
				t.Fatalf("record failure: %v", err)
			}
		}
		clock.Advance(10 * time.Minute)

		rec, err := l.RecordFailure(ctx, id)
		if err != nil {
			t.Fatalf("record failure: %v", err)
		}
		if rec.AttemptCount != 1 {
			t.Fatalf("expected count to restart, got %d", rec.AttemptCount)
		}
		if !rec.FirstAttemptAt.Equal(clock.Now()) {
			t.Fatalf("expected first attempt %v, got %v", clock.Now(), rec.FirstAttemptAt)
		}
	})
}

func TestLockoutResetAndAttempts(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		l := NewLockout(store, LockoutConfig{}, nil)
		id := Identifier("login", "1.2.3.4", "alice")

		if n, err := l.Attempts(ctx, id); err != nil || n != 0 {
			t.Fatalf("expected 0 attempts, got %d (%v)", n, err)
		}
		_, _ = l.RecordFailure(ctx, id)
		_, _ = l.RecordFailure(ctx, id)
		if n, _ := l.Attempts(ctx, id); n != 2 {
			t.Fatalf("expected 2 attempts, got %d", n)
		}
		if err := l.Reset(ctx, id); err != nil {
			t.Fatalf("reset: %v", err)
		}
		if n, _ := l.Attempts(ctx, id); n != 0 {
			t.Fatalf("expected reset, got %d", n)
		}
		if err := l.Reset(ctx, id); err != nil {
			t.Fatalf("reset of missing record: %v", err)
		}
	})
}

func TestLockoutIdentifiersAreIndependent(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		l := NewLockout(store, LockoutConfig{}, nil)

		blockedID := Identifier("login", "9.9.9.9", "bob")
		if err := l.Block(ctx, blockedID, time.Hour); err != nil {
			t.Fatalf("block: %v", err)
		}
		for _, id := range []string{
			Identifier("login", "8.8.8.8", "bob"),
			Identifier("login", "9.9.9.9", "alice"),
		} {
			if blocked, _ := l.IsBlocked(ctx, id); blocked {
				t.Fatalf("%s must not be blocked", id)
			}
		}
	})
}

func TestSQLStoreDeleteStale(t *testing.T) {
	ctx := context.Background()
	store := newSQLStore(t)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	l := NewLockout(store, LockoutConfig{}, clock.Now)

	_, _ = l.RecordFailure(ctx, "login:a:old")
	_ = l.Block(ctx, "login:a:blocked", 2*time.Hour)
	clock.Advance(31 * time.Minute)
	_, _ = l.RecordFailure(ctx, "login:a:fresh")

	n, err := l.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stale row, got %d", n)
	}
	if _, err := store.Get(ctx, "login:a:old"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected stale row gone, got %v", err)
	}
	for _, id := range []string{"login:a:blocked", "login:a:fresh"} {
		if _, err := store.Get(ctx, id); err != nil {
			t.Fatalf("%s should survive the sweep: %v", id, err)
		}
	}
}

func TestRedisStoreKeysExpire(t *testing.T) {
	ctx := context.Background()
	mr, store := newRedisStore(t)
	l := NewLockout(store, LockoutConfig{}, nil)
	id := Identifier("login", "1.2.3.4", "alice")

	_, _ = l.RecordFailure(ctx, id)
	if ttl := mr.TTL("rl:" + id); ttl != 30*time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}
	_ = l.Block(ctx, id, time.Hour)
	if ttl := mr.TTL("rl:" + id); ttl != time.Hour {
		t.Fatalf("expected block ttl, got %v", ttl)
	}

	mr.FastForward(time.Hour)
	if n, _ := l.Attempts(ctx, id); n != 0 {
		t.Fatalf("expected key to expire, got %d attempts", n)
	}
}

func TestLockoutUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, store := newRedisStore(t)
	l := NewLockout(store, LockoutConfig{}, nil)
	mr.SetError("ERR backend down")

	if _, err := l.IsBlocked(ctx, "x"); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("IsBlocked: expected ErrLockoutUnavailable, got %v", err)
	}
	if _, err := l.RecordFailure(ctx, "x"); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("RecordFailure: expected ErrLockoutUnavailable, got %v", err)
	}
	if err := l.Block(ctx, "x", time.Minute); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("Block: expected ErrLockoutUnavailable, got %v", err)
	}
}

func TestSweeperRunOnceContinuesAfterFailure(t *testing.T) {
	s := NewSweeper(time.Minute, nil)
	s.Add("broken", func(context.Context) (int64, error) { return 0, errors.New("boom") })
	s.Add("sessions", func(context.Context) (int64, error) { return 4, nil })

	out := s.RunOnce(context.Background())
	if _, ok := out["broken"]; ok {
		t.Fatalf("failed task must not report a count")
	}
	if out["sessions"] != 4 {
		t.Fatalf("expected 4, got %d", out["sessions"])
	}
}

func TestSweeperStopsWithContext(t *testing.T) {
	s := NewSweeper(time.Millisecond, nil)
	runs := make(chan struct{}, 64)
	s.Add("tick", func(context.Context) (int64, error) {
		select {
		case runs <- struct{}{}:
		default:
		}
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper never ran")
	}
	cancel()
	s.Wait()
}
