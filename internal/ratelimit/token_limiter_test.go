package ratelimit_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praesidio-sec/phishsim/internal/ratelimit"
)

func newRedisLimiter(t *testing.T, perMinute int) *ratelimit.TokenLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return ratelimit.NewTokenLimiter(client, perMinute)
}

func TestTokenLimiterAllowsWithinBudget(t *testing.T) {
	l := newRedisLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "tok-a"), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow(ctx, "tok-a"), "request over budget should be denied")
}

func TestTokenLimiterPerToken(t *testing.T) {
	l := newRedisLimiter(t, 1)
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "tok-a"))
	assert.False(t, l.Allow(ctx, "tok-a"))
	assert.True(t, l.Allow(ctx, "tok-b"), "tokens have independent budgets")
}

func TestTokenLimiterFallbackWithoutRedis(t *testing.T) {
	l := ratelimit.NewTokenLimiter(nil, 2)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "tok"))
	assert.True(t, l.Allow(ctx, "tok"))
	assert.False(t, l.Allow(ctx, "tok"))
}

func TestTokenLimiterFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := ratelimit.NewTokenLimiter(client, 1)

	mr.Close()

	assert.True(t, l.Allow(context.Background(), "tok"), "redis outage must not block tracking")
}
