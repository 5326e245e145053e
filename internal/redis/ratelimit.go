package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig defines the per-minute budgets enforced at the edge.
type RateLimitConfig struct {
	GlobalLimit    int
	MessageLimit   int
	SensitiveLimit int
	CallLimit      int
	Window         time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		GlobalLimit:    300,
		MessageLimit:   60,
		SensitiveLimit: 20,
		CallLimit:      10,
		Window:         time.Minute,
	}
}

// RateLimitResult reports whether the action was admitted and how much
// budget remains in the current window.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

// RateLimiter implements fixed-window counting in Redis. The check and
// increment run in one Lua script so concurrent requests cannot overshoot
// the limit.
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

var rateLimitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	end
	return {0, 0, ttl}
`)

// AllowGlobal gates every authenticated request.
func (r *RateLimiter) AllowGlobal(ctx context.Context, userID string) (*RateLimitResult, error) {
	return r.check(ctx, "ratelimit:"+userID+":global", r.config.GlobalLimit)
}

// AllowMessage gates message sends.
func (r *RateLimiter) AllowMessage(ctx context.Context, userID string) (*RateLimitResult, error) {
	return r.check(ctx, "ratelimit:"+userID+":messages", r.config.MessageLimit)
}

// AllowSensitive gates archive, delete and similar destructive routes.
func (r *RateLimiter) AllowSensitive(ctx context.Context, userID string) (*RateLimitResult, error) {
	return r.check(ctx, "ratelimit:"+userID+":sensitive", r.config.SensitiveLimit)
}

// AllowCall gates call initiation.
func (r *RateLimiter) AllowCall(ctx context.Context, userID string) (*RateLimitResult, error) {
	return r.check(ctx, "ratelimit:"+userID+":calls", r.config.CallLimit)
}

func (r *RateLimiter) check(ctx context.Context, key string, limit int) (*RateLimitResult, error) {
	result, err := rateLimitScript.Run(ctx, r.client, []string{key}, limit, int(r.config.Window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit script result")
	}

	return &RateLimitResult{
		Allowed:   values[0].(int64) == 1,
		Remaining: int(values[1].(int64)),
		ResetIn:   time.Duration(values[2].(int64)) * time.Second,
		Limit:     limit,
	}, nil
}

// ResetUser clears all rate limit counters for a user.
func (r *RateLimiter) ResetUser(ctx context.Context, userID string) error {
	keys := []string{
		"ratelimit:" + userID + ":global",
		"ratelimit:" + userID + ":messages",
		"ratelimit:" + userID + ":sensitive",
		"ratelimit:" + userID + ":calls",
	}
	return r.client.Del(ctx, keys...).Err()
}
