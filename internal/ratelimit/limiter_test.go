package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRules() map[string]Rule {
	return map[string]Rule{
		OpCreate: {Limit: 3, Window: 60 * time.Second},
	}
}

func TestLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()

	counters := NewMemoryCounterStore()
	clock := time.Unix(1700000000, 0)
	counters.now = func() time.Time { return clock }

	l := New(counters, testRules(), Rule{Limit: 200, Window: time.Minute}, zap.NewNop().Sugar())

	t.Run("allows up to the limit with decreasing remaining", func(t *testing.T) {
		var firstReset time.Time
		for i, wantRemaining := range []int{2, 1, 0} {
			res := l.Allow(ctx, "10.0.0.1", OpCreate)
			require.True(t, res.Allowed, "call %d should be allowed", i+1)
			require.Equal(t, wantRemaining, res.Remaining)
			if i == 0 {
				firstReset = res.ResetAt
				require.Equal(t, clock.Add(60*time.Second), firstReset)
			} else {
				require.Equal(t, firstReset, res.ResetAt, "reset instant stays fixed inside a window")
			}
		}

		res := l.Allow(ctx, "10.0.0.1", OpCreate)
		require.False(t, res.Allowed, "fourth call exceeds limit 3")
		require.Equal(t, 0, res.Remaining)
		require.Equal(t, firstReset, res.ResetAt)
		require.Equal(t, 61, res.RetryAfter(clock))
	})

	t.Run("window rollover resets the count", func(t *testing.T) {
		clock = clock.Add(61 * time.Second)

		res := l.Allow(ctx, "10.0.0.1", OpCreate)
		require.True(t, res.Allowed)
		require.Equal(t, 2, res.Remaining, "fresh window starts at count 1")
		require.Equal(t, clock.Add(60*time.Second), res.ResetAt)
	})

	t.Run("clients and operations are tracked independently", func(t *testing.T) {
		res := l.Allow(ctx, "10.0.0.2", OpCreate)
		require.True(t, res.Allowed)
		require.Equal(t, 2, res.Remaining)

		res = l.Allow(ctx, "10.0.0.1", OpView)
		require.True(t, res.Allowed)
		require.Equal(t, 199, res.Remaining, "unknown ops use the fallback rule")
	})
}

type failingCounterStore struct{}

func (failingCounterStore) Incr(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("counter store unreachable")
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New(failingCounterStore{}, testRules(), Rule{Limit: 200, Window: time.Minute}, zap.NewNop().Sugar())

	for i := 0; i < 10; i++ {
		res := l.Allow(context.Background(), "10.0.0.1", OpCreate)
		require.True(t, res.Allowed, "limiter must fail open when counters are down")
	}
}

func TestRedisCounterStore(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	counters := NewRedisCounterStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	t.Run("counts within a window", func(t *testing.T) {
		for want := int64(1); want <= 4; want++ {
			count, resetAt, err := counters.Incr(ctx, "ratelimit:10.0.0.1:create", 60*time.Second)
			require.NoError(t, err)
			require.Equal(t, want, count)
			require.WithinDuration(t, time.Now().Add(60*time.Second), resetAt, 2*time.Second)
		}
	})

	t.Run("window resets once past its reset instant", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, _, err := counters.Incr(ctx, "ratelimit:10.0.0.8:create", 60*time.Second)
			require.NoError(t, err)
		}

		// past the 60s reset instant but before the key expires at 70s
		mr.FastForward(65 * time.Second)

		count, resetAt, err := counters.Incr(ctx, "ratelimit:10.0.0.8:create", 60*time.Second)
		require.NoError(t, err)
		require.Equal(t, int64(1), count, "lapsed window starts over, not at 4")
		require.WithinDuration(t, time.Now().Add(60*time.Second), resetAt, 2*time.Second,
			"fresh window reports a future reset instant")
	})

	t.Run("entry expires after window plus buffer", func(t *testing.T) {
		_, _, err := counters.Incr(ctx, "ratelimit:10.0.0.9:create", 60*time.Second)
		require.NoError(t, err)

		mr.FastForward(71 * time.Second)

		count, _, err := counters.Incr(ctx, "ratelimit:10.0.0.9:create", 60*time.Second)
		require.NoError(t, err)
		require.Equal(t, int64(1), count, "expired counter starts a fresh window")
	})

	t.Run("fails open at the limiter when redis is gone", func(t *testing.T) {
		deadClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		l := New(NewRedisCounterStore(deadClient), testRules(), Rule{Limit: 200, Window: time.Minute}, zap.NewNop().Sugar())

		res := l.Allow(ctx, "10.0.0.1", OpCreate)
		require.True(t, res.Allowed)
	})
}
