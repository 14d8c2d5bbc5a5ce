package ratelimit

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"referral/internal/domain/service"
)

// NewRateLimiter uses redis when a client is configured, otherwise an
// in-process limiter.
func NewRateLimiter(client *redis.Client, logger *slog.Logger) service.RateLimiter {
	if client == nil {
		logger.Info("Using in-process rate limiter")

		return NewMemoryLimiter(nil)
	}

	return NewRedisFixedWindowLimiter(client, "rl:mobile")
}
