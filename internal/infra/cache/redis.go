// Package cache wires the optional redis client and the stores built on it.
package cache

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"referral/config"
	"referral/internal/domain/lifecycle"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewRedisClient returns nil when redis is not configured; callers then use
// in-process stores.
func NewRedisClient(params Params) *redis.Client {
	if !params.Config.RedisEnabled() {
		params.Logger.Info("Redis not configured, using in-process rate limiting and replay guard")

		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     params.Config.Redis.Addr,
		Password: params.Config.Redis.Password,
		DB:       params.Config.Redis.DB,
	})

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			// Redis only guards abuse paths; being down at boot is not fatal.
			if err := client.Ping(ctx).Err(); err != nil {
				params.Logger.WarnContext(ctx, "Redis ping failed", slog.Any("error", err))
			}

			return nil
		},
		OnStop: func(_ context.Context) error {
			return errors.Wrap(client.Close(), "close redis")
		},
	})

	return client
}
