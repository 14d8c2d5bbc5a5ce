package main

import (
	"context"
	"log/slog"
	"os"

	"referral/config"
	"referral/internal/delivery"
	"referral/internal/delivery/http"
	"referral/internal/delivery/http/middleware"
	"referral/internal/delivery/http/router/handler"
	"referral/internal/infra/auth"
	"referral/internal/infra/cache"
	logs "referral/internal/infra/log"
	"referral/internal/infra/metrics"
	"referral/internal/infra/persistence/postgres"
	"referral/internal/infra/pubsub"
	"referral/internal/infra/ratelimit"
	"referral/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
			cache.NewRedisClient,
		),
		metrics.Module,
		pubsub.Module,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewSessionRepository,
			fx.Annotate(
				postgres.NewApplicantRepository,
				fx.ResultTags(`name:"applicants"`),
			),
			fx.Annotate(
				postgres.NewReferrerRepository,
				fx.ResultTags(`name:"referrers"`),
			),
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewTokenConfig,
			auth.NewJWTService,
			auth.NewStatelessConfig,
			auth.NewStatelessRefreshCodec,
			auth.NewPortalTokenVerifier,
			auth.NewSecretHasher,
			cache.NewReplayGuard,
			ratelimit.NewRateLimiter,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewSessionTimings,
			fx.Annotate(
				impl.NewApplicantSessionManager,
				fx.ResultTags(`name:"applicantSessions"`),
			),
			fx.Annotate(
				impl.NewReferrerSessionManager,
				fx.ResultTags(`name:"referrerSessions"`),
			),
			impl.NewAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewRateLimitMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
