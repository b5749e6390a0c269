package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ CounterStore = (*RedisCounterStore)(nil)

// RedisCounterStore backs fixed-window counters with Redis so limits hold
// across instances. INCR and PTTL run in one transactional pipeline; the
// key's expiry is window+buffer, and the reset instant is derived back from
// the remaining TTL so every call in a window reports the same ResetAt.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (r *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("incrementing counter %s: %w", key, err)
	}

	// A key without expiry is the first hit of a window (or a leftover from
	// a crash between INCR and EXPIRE); stamp it now.
	if pttl.Val() < 0 {
		if err := r.client.PExpire(ctx, key, window+counterTTLBuffer).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("setting counter expiry %s: %w", key, err)
		}
		return incr.Val(), now.Add(window), nil
	}

	// Remaining TTL at or under the buffer means the window's reset instant
	// has passed even though the key has not expired yet; start a fresh
	// window instead of counting against the stale one.
	if pttl.Val() <= counterTTLBuffer {
		if err := r.client.Set(ctx, key, 1, window+counterTTLBuffer).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("resetting counter %s: %w", key, err)
		}
		return 1, now.Add(window), nil
	}

	resetAt := now.Add(pttl.Val() - counterTTLBuffer)
	return incr.Val(), resetAt, nil
}
