// Package ratelimit implements the request gate consulted before credential checks.
package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"referral/internal/domain/service"
)

// Fixed window counter. Returns {count, pttl_ms}.
var redisFixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisFixedWindowLimiter shares budgets across every instance of the service.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisFixedWindowLimiter is the constructor for RedisFixedWindowLimiter.
func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}

	return &RedisFixedWindowLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, policy service.RateLimitPolicy) (service.RateLimitDecision, error) {
	if l.client == nil {
		return service.RateLimitDecision{}, errors.New("redis client is nil")
	}
	policy = normalizePolicy(policy)
	if key == "" {
		key = "unknown"
	}

	windowMS := policy.Window.Milliseconds()
	raw, err := redisFixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + policy.Name + ":" + key}, windowMS).Result()
	if err != nil {
		return service.RateLimitDecision{}, errors.Wrap(err, "run rate limit script")
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return service.RateLimitDecision{}, errors.New("unexpected redis script response type")
	}
	count, err := parseRedisInt64(values[0])
	if err != nil {
		return service.RateLimitDecision{}, err
	}
	ttlMS, err := parseRedisInt64(values[1])
	if err != nil {
		return service.RateLimitDecision{}, err
	}
	if ttlMS <= 0 {
		ttlMS = 1
	}

	resetIn := time.Duration(ttlMS) * time.Millisecond
	decision := service.RateLimitDecision{
		Allowed:   count <= int64(policy.Limit),
		Limit:     policy.Limit,
		Remaining: int(max(int64(policy.Limit)-count, 0)),
		ResetAt:   l.now().Add(resetIn),
	}
	if !decision.Allowed {
		decision.RetryAfter = resetIn
	}

	return decision, nil
}

func parseRedisInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, errors.New("redis response overflows int64")
		}

		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, errors.Errorf("unexpected redis response type %T", v)
	}
}

func normalizePolicy(policy service.RateLimitPolicy) service.RateLimitPolicy {
	if policy.Limit <= 0 {
		policy.Limit = 1
	}
	if policy.Window <= 0 {
		policy.Window = time.Minute
	}
	if policy.Name == "" {
		policy.Name = "default"
	}

	return policy
}
