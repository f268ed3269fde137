package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"slots-service/internal/app"
	"slots-service/internal/config"
	"slots-service/internal/server"
	"slots-service/internal/slots"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTelemetry, err := app.SetupTelemetry(ctx, app.TelemetryConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "slots-service",
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSamplingRatio,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	tz, err := slots.LoadTimezone(cfg.Timezone)
	if err != nil {
		return err
	}

	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.RunMigrations {
		migrator, err := app.NewMigrator(pool, logger)
		if err != nil {
			return err
		}
		err = migrator.Run(ctx)
		_ = migrator.Close()
		if err != nil {
			return err
		}
	}

	tokens, err := app.NewProviderTokenSource(ctx, app.ProviderAuthConfig{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Endpoint:     app.ProviderEndpoint(cfg.Provider, cfg.OAuthTokenURL),
		RefreshToken: cfg.OAuthRefreshToken,
		AccessToken:  cfg.ProviderAccessToken,
	}, app.NewTokenStore(pool), logger)
	if err != nil {
		return err
	}
	httpClient := app.NewProviderHTTPClient(tokens)

	var provider slots.ProviderSource
	switch cfg.Provider {
	case config.ProviderGoogle:
		provider, err = app.NewGoogleFreeBusySource(ctx, app.GoogleSourceConfig{
			Timezone: tz.Name(),
			Step:     cfg.GoogleSlotStep,
			Duration: cfg.GoogleSlotDuration,
		}, option.WithHTTPClient(httpClient))
		if err != nil {
			return err
		}
	default:
		provider = app.NewLeadConnectorSource(cfg.LeadConnectorBaseURL, cfg.LeadConnectorAPIVersion, httpClient)
	}
	provider = app.NewRetryingSource(provider, cfg.RetryMax, cfg.RetryBaseDelay, logger)

	resolver := slots.NewResolver(provider, app.NewPostgresRules(pool), tz,
		slots.WithLogger(logger),
		slots.WithRangeDays(cfg.RangeDays),
	)

	a := &app.App{
		Resolver: resolver,
		Logger:   logger,
		Ready:    pool.Ping,
	}
	if cfg.RedisURL != "" {
		rdb, err := app.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache := app.NewSlotCache(rdb, cfg.CacheTTL)
		a.Cache = cache
		a.Ready = func(ctx context.Context) error {
			return errors.Join(pool.Ping(ctx), cache.Ping(ctx))
		}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := app.NewRouter(a, app.RouterOptions{
		Auth: app.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			StaticTokens: cfg.StaticTokenList(),
		},
		CORSOrigins:    cfg.CORSOriginList(),
		RequestTimeout: cfg.RequestTimeout,
	})

	logger.Info("starting slots service",
		zap.String("provider", cfg.Provider),
		zap.String("timezone", tz.Name()),
		zap.Int("range_days", cfg.RangeDays))
	return server.Run(ctx, router, cfg.Addr(), logger)
}
