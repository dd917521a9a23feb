package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/internal/stores"
)

type loadtestOpts struct {
	admins      int
	concurrency int
	ops         int
	redisAddr   string
}

// newLoadtestCmd measures authenticate and refresh throughput against an in-memory sqlite
// datastore and a real or embedded redis.
func newLoadtestCmd() *cobra.Command {
	var opts loadtestOpts

	cmd := &cobra.Command{
		Use:    "loadtest",
		Short:  "Benchmark authenticate and refresh against in-memory backends",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.admins <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return fmt.Errorf("admins, concurrency, and ops must be > 0")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.admins, "admins", 200, "number of admins to seed and log in")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 32, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 20000, "operations per phase (authenticate + refresh)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; miniredis is used when empty")

	return cmd
}

type loadState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}

	addr := opts.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	db, err := stores.OpenAndMigrate(ctx, stores.DriverSQLite, ":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := folioauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("folioauth-loadtest-secret-0123456789")
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Password.UpgradeOnLogin = false
	cfg.Lockout.SweepInterval = 0

	engine, err := folioauth.New().
		WithConfig(cfg).
		WithLogger(slog.New(slog.DiscardHandler)).
		WithCredentialStore(folioauth.NewSQLCredentialStore(db)).
		WithSessionStore(folioauth.NewSQLSessionStore(db)).
		WithLockoutStore(folioauth.NewRedisLockoutStore(client, "lt:rl:")).
		WithBlacklist(folioauth.NewRedisBlacklist(client, "lt:bl:")).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("loadtest"), bcrypt.MinCost)
	if err != nil {
		return err
	}
	admins := stores.NewAdmins(db)
	states := make([]*loadState, opts.admins)

	fmt.Fprintf(out, "seeding %d admins...\n", opts.admins)
	startSeed := time.Now()
	for i := range states {
		name := fmt.Sprintf("admin%d", i)
		if err := admins.Create(ctx, &stores.Admin{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: string(hash),
			Role:         string(folioauth.RoleEditor),
			IsActive:     true,
		}); err != nil {
			return err
		}
		res := engine.Login(ctx, folioauth.LoginRequest{
			Username:   name,
			Password:   "loadtest",
			CSRFToken:  "lt",
			CSRFCookie: "lt",
		})
		if !res.OK() {
			return fmt.Errorf("seed login %s: %v", name, res.Kind)
		}
		states[i] = &loadState{access: res.Tokens.AccessToken, refresh: res.Tokens.RefreshToken}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(opts, func(r *rand.Rand) bool {
		st := states[r.Intn(len(states))]
		st.mu.Lock()
		token := st.access
		st.mu.Unlock()
		return engine.Authenticate(ctx, token).OK()
	})
	refreshStats := runPhase(opts, func(r *rand.Rand) bool {
		st := states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		res := engine.Refresh(ctx, st.refresh)
		if !res.OK() {
			return false
		}
		st.access, st.refresh = res.Tokens.AccessToken, res.Tokens.RefreshToken
		return true
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "authenticate", authStats)
	printStats(out, "refresh", refreshStats)
	return nil
}

func runPhase(opts loadtestOpts, op func(*rand.Rand) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > opts.ops {
					return
				}
				t0 := time.Now()
				ok := op(r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
