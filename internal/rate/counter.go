package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is an httprate.LimitCounter that keeps window counts in redis.
type Counter struct {
	redis        redis.UniversalClient
	prefix       string
	windowLength time.Duration
	timeout      time.Duration
}

// NewCounter returns a Counter using keys under prefix. An empty prefix selects "hr:".
func NewCounter(client redis.UniversalClient, prefix string) *Counter {
	if prefix == "" {
		prefix = "hr:"
	}
	return &Counter{redis: client, prefix: prefix, windowLength: time.Minute, timeout: time.Second}
}

// Config is called by httprate with the limiter's window before first use.
func (c *Counter) Config(_ int, windowLength time.Duration) {
	if windowLength > 0 {
		c.windowLength = windowLength
	}
}

func (c *Counter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

// IncrementBy adds amount to the current window and (re)arms its expiry in one round trip.
func (c *Counter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	k := c.key(key, currentWindow)
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, k, int64(amount))
		pipe.Expire(ctx, k, 2*c.windowLength)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the counts of the current and previous windows. Missing keys count as zero.
func (c *Counter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	vals, err := c.redis.MGet(ctx, c.key(key, currentWindow), c.key(key, previousWindow)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(vals) != 2 {
		return 0, 0, nil
	}
	return toInt(vals[0]), toInt(vals[1]), nil
}

func (c *Counter) key(key string, window time.Time) string {
	return c.prefix + key + ":" + strconv.FormatInt(window.Unix(), 10)
}

func toInt(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
