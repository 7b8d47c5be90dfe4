package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for an atomic per-token burst check. INCR and EXPIRE in one
// round trip so concurrent trackers cannot race past the limit.
const tokenLimitLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
    redis.call("EXPIRE", key, ttl)
end

if current > limit then
    return 0
end
return 1
`

// TokenLimiter enforces the per-token request budget on the public
// tracking surface. With a redis client it is shared across tracking
// instances; without one it degrades to the in-process fixed window.
type TokenLimiter struct {
	redis     *redis.Client
	script    *redis.Script
	fallback  *FixedWindow
	perMinute int
}

// NewTokenLimiter creates a limiter allowing perMinute requests per
// token. redisClient may be nil.
func NewTokenLimiter(redisClient *redis.Client, perMinute int) *TokenLimiter {
	return &TokenLimiter{
		redis:     redisClient,
		script:    redis.NewScript(tokenLimitLuaScript),
		fallback:  NewFixedWindow(),
		perMinute: perMinute,
	}
}

// NewTokenLimiterFromURL connects to redis and returns a shared limiter.
func NewTokenLimiterFromURL(redisURL string, perMinute int) (*TokenLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Printf("[TokenLimiter] Connected to Redis")
	return NewTokenLimiter(client, perMinute), nil
}

// Allow reports whether one more request for this token fits the budget.
// A redis failure allows the request; losing one limiter check is better
// than taking the tracking surface down with it.
func (t *TokenLimiter) Allow(ctx context.Context, token string) bool {
	if t.redis == nil {
		return t.fallback.TryAcquire("track:"+token, t.perMinute)
	}

	key := fmt.Sprintf("tracklimit:%s:%d", token, time.Now().Unix()/60)
	result, err := t.script.Run(ctx, t.redis, []string{key}, t.perMinute, 120).Int64()
	if err != nil {
		log.Printf("[TokenLimiter] check error: %v", err)
		return true
	}
	return result == 1
}

// Close releases the redis connection if one is held.
func (t *TokenLimiter) Close() error {
	if t.redis == nil {
		return nil
	}
	return t.redis.Close()
}
