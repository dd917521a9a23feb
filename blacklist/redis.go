package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries as "SET <prefix><sha256> 1 EX <ttl>", so redis expires them together with
// the token.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis blacklist. An empty prefix selects "bl:".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "bl:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Add revokes token for ttl. A non-positive ttl means the token is already dead and nothing is written.
func (b *Redis) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.prefix+Key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Contains reports whether token is currently revoked.
func (b *Redis) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, b.prefix+Key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of token's entry, or zero when there is none.
func (b *Redis) TTL(ctx context.Context, token string) (time.Duration, error) {
	d, err := b.client.TTL(ctx, b.prefix+Key(token)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
