package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, counts it, and records the request
// when under the limit, all in one round trip.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':seq')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local ttl = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, ttl)
		redis.call('EXPIRE', key .. ':seq', ttl)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

// RedisLimiter shares a sliding window across server instances
type RedisLimiter struct {
	client    redis.Scripter
	keyPrefix string
	limit     int
	window    time.Duration
	clock     clockwork.Clock
}

// NewRedisLimiter creates a limiter backed by client
func NewRedisLimiter(client redis.Scripter, keyPrefix string, limit int, window time.Duration, clock clockwork.Clock) *RedisLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		clock:     clock,
	}
}

// Allow checks and records a request for key
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.clock.Now()
	nowMs := now.UnixMilli()

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.keyPrefix + key},
		nowMs, now.Add(-l.window).UnixMilli(), l.limit, l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Result{}, fmt.Errorf("unexpected rate limit reply of %d values", len(res))
	}

	result := Result{
		Allowed:   res[0] == 1,
		Limit:     l.limit,
		Remaining: int(res[1]),
		ResetAt:   now.Add(l.window),
	}
	if res[2] > 0 {
		result.ResetAt = time.UnixMilli(res[2])
	}
	return result, nil
}

// NewRedisClient parses url (redis://...) and pings the server
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
