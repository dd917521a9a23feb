package limiters

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCount   = "count"
	fieldFirst   = "first"
	fieldLast    = "last"
	fieldBlocked = "blocked"
)

// RedisStore keeps one hash per identifier. Keys expire on their own once the tracking window
// (or the block, whichever is later) is over, so DeleteStale has nothing to do.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore using keys "<prefix><identifier>". An empty prefix selects "rl:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(identifier string) string {
	return s.prefix + identifier
}

func (s *RedisStore) Get(ctx context.Context, identifier string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(identifier)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrRecordNotFound
	}
	return decodeRecord(identifier, fields), nil
}

func (s *RedisStore) Increment(ctx context.Context, identifier string, now time.Time, window time.Duration) (*Record, error) {
	key := s.key(identifier)
	count, err := s.redis.HIncrBy(ctx, key, fieldCount, 1).Result()
	if err != nil {
		return nil, err
	}

	stamp := strconv.FormatInt(now.UnixNano(), 10)
	if count == 1 {
		if err := s.redis.HSet(ctx, key, fieldFirst, stamp).Err(); err != nil {
			return nil, err
		}
		if err := s.redis.Expire(ctx, key, window).Err(); err != nil {
			return nil, err
		}
	}
	if err := s.redis.HSet(ctx, key, fieldLast, stamp).Err(); err != nil {
		return nil, err
	}
	return s.Get(ctx, identifier)
}

func (s *RedisStore) Block(ctx context.Context, identifier string, now, until time.Time) error {
	key := s.key(identifier)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldFirst, strconv.FormatInt(now.UnixNano(), 10))
		pipe.HSet(ctx, key, fieldBlocked, strconv.FormatInt(until.UnixNano(), 10))
		pipe.Expire(ctx, key, until.Sub(now))
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context, identifier string) error {
	return s.redis.Del(ctx, s.key(identifier)).Err()
}

func (s *RedisStore) DeleteStale(context.Context, time.Time, time.Duration) (int64, error) {
	return 0, nil
}

func decodeRecord(identifier string, fields map[string]string) *Record {
	rec := &Record{Identifier: identifier}
	if v, err := strconv.Atoi(fields[fieldCount]); err == nil {
		rec.AttemptCount = v
	}
	rec.FirstAttemptAt = parseNanos(fields[fieldFirst])
	rec.LastAttemptAt = parseNanos(fields[fieldLast])
	if raw, ok := fields[fieldBlocked]; ok {
		t := parseNanos(raw)
		rec.BlockedUntil = &t
	}
	return rec
}

func parseNanos(raw string) time.Time {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}
