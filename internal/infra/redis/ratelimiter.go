package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cauafreitas/portfolio-api/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.Limiter = (*RateLimiter)(nil)

// RateLimiter is a distributed fixed-window limiter backed by Redis, keyed by
// operation prefix and client identity. Counters survive process restarts and
// are shared between instances.
type RateLimiter struct {
	client *goredis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
	script *goredis.Script
}

func NewRateLimiter(client *goredis.Client, prefix string, limit int, window time.Duration) (*RateLimiter, error) {
	return newRateLimiter(client, prefix, int64(limit), window, time.Now)
}

func newRateLimiter(
	client *goredis.Client,
	prefix string,
	limit int64,
	window time.Duration,
	nowFn func() time.Time,
) (*RateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("prefix is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if window < time.Second {
		return nil, fmt.Errorf("window must be at least one second, got %s", window)
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &RateLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		limit:  limit,
		window: window,
		now:    nowFn,
		script: allowScript,
	}, nil
}

func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return false, fmt.Errorf("key is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	windowSeconds := int64(r.window / time.Second)
	bucket := r.now().UTC().Unix() / windowSeconds
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", r.prefix, normalizedKey, bucket)

	result, err := r.script.Run(ctx, r.client, []string{redisKey}, r.limit, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}
