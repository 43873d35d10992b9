package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is used to enforce per-caller rate limits on the HTTP surface.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const window = time.Minute

// RateLimiter implements a distributed sliding-window limit using Redis
// sorted sets. Every caller shares the same per-minute limit.
type RateLimiter struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per minute per
// key. A limit of zero or less disables limiting.
func NewRateLimiter(client *redis.Client, limit int) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, now: time.Now}
}

func redisKey(key string) string {
	return fmt.Sprintf("sarinfer:ratelimit:%s", key)
}

// Allow records one request for key and reports whether it is within the
// limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, _, _, err := rl.AllowWithDetails(ctx, key)
	return allowed, err
}

// slidingWindow checks and records a request in one step, so concurrent
// callers cannot both take the last slot.
//
// KEYS[1] window key; ARGV: now (ms), window (ms), limit, member.
// Returns {allowed, count before this request, reset at (ms)}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #oldest > 0 then
	reset = tonumber(oldest[2]) + window
end

if count >= limit then
	return {0, count, reset}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window * 2)
return {1, count, reset}
`)

// AllowWithDetails is Allow plus the remaining budget and the time the
// oldest request in the window expires. remaining is -1 when unlimited.
func (rl *RateLimiter) AllowWithDetails(ctx context.Context, key string) (bool, int, time.Time, error) {
	if rl.limit <= 0 {
		return true, -1, time.Time{}, nil
	}

	now := rl.now().UnixMilli()
	res, err := slidingWindow.Run(ctx, rl.client, []string{redisKey(key)},
		now, window.Milliseconds(), rl.limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: unexpected reply %v", res)
	}

	count := int(res[1])
	resetAt := time.UnixMilli(res[2])
	if res[0] == 0 {
		return false, 0, resetAt, nil
	}
	return true, rl.limit - count - 1, resetAt, nil
}

// GetCurrentUsage returns the request count in the current window.
func (rl *RateLimiter) GetCurrentUsage(ctx context.Context, key string) (int64, error) {
	rk := redisKey(key)
	windowStart := rl.now().Add(-window)

	if err := rl.client.ZRemRangeByScore(ctx, rk, "0", fmt.Sprintf("%d", windowStart.UnixMilli())).Err(); err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := rl.client.ZCard(ctx, rk).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get current usage: %w", err)
	}
	return count, nil
}

// Reset clears the window for key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, redisKey(key)).Err()
}
