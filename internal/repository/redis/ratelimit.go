package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set, one set per caller. Each hit is a
// uniquely-named member scored by its millisecond timestamp; members older
// than the window are dropped before counting.
//
// KEYS[1] = window set
// ARGV[1] = now (ms), ARGV[2] = window (ms), ARGV[3] = max hits, ARGV[4] = hit id
//
// Returns {allowed, retry_ms}.
const slidingWindowScript = `
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1] - ARGV[2])
redis.call('ZADD', KEYS[1], 'NX', ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])

if redis.call('ZCARD', KEYS[1]) <= tonumber(ARGV[3]) then
  return {1, 0}
end

local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local oldest_ms = tonumber(oldest[2]) or (ARGV[1] - ARGV[2])
local retry_ms = tonumber(ARGV[2]) - (tonumber(ARGV[1]) - oldest_ms)
if retry_ms < 0 then retry_ms = 0 end
return {0, retry_ms}
`

// SlidingWindowLimiter throttles registration attempts per caller key.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	prefix string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowScript),
	}
}

// Allow records a hit for the caller and reports whether it fits the
// window. When it does not, retryAfter says how long until the oldest hit
// falls out of the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, caller string) (allowed bool, retryAfter time.Duration, err error) {
	key := fmt.Sprintf("%s:%s", l.prefix, caller)

	res, err := l.script.Run(ctx, l.rdb,
		[]string{key},
		time.Now().UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
		uuid.NewString(),
	).Result()
	if err != nil {
		return false, 0, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result: %v", res)
	}

	return asInt64(arr[0]) == 1, time.Duration(asInt64(arr[1])) * time.Millisecond, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		var x int64
		fmt.Sscan(t, &x)
		return x
	default:
		return 0
	}
}
