package limiters

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepFunc removes expired rows and reports how many were deleted.
type SweepFunc func(ctx context.Context) (int64, error)

// Sweeper runs named SweepFuncs on a fixed interval until its context is cancelled. Each task
// only deletes rows whose windows have already elapsed, so it can run alongside live requests.
type Sweeper struct {
	interval time.Duration
	logger   *slog.Logger
	tasks    map[string]SweepFunc
	wg       sync.WaitGroup
}

// NewSweeper returns a Sweeper. A nil logger discards output.
func NewSweeper(interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{interval: interval, logger: logger, tasks: map[string]SweepFunc{}}
}

// Add registers a task. It must be called before Start.
func (s *Sweeper) Add(name string, fn SweepFunc) {
	s.tasks[name] = fn
}

// Start launches the background loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the loop started by Start has returned.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

// RunOnce executes every task once. Failures are logged and do not stop other tasks.
func (s *Sweeper) RunOnce(ctx context.Context) map[string]int64 {
	out := make(map[string]int64, len(s.tasks))
	for name, fn := range s.tasks {
		n, err := fn(ctx)
		if err != nil {
			s.logger.Warn("sweep failed", "task", name, "error", err)
			continue
		}
		out[name] = n
		if n > 0 {
			s.logger.Debug("sweep removed rows", "task", name, "rows", n)
		}
	}
	return out
}
