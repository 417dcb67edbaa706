package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/config"
	"github.com/noah-isme/legalbot-guard-api/internal/database"
	"github.com/noah-isme/legalbot-guard-api/internal/handler"
	"github.com/noah-isme/legalbot-guard-api/internal/middleware"
	"github.com/noah-isme/legalbot-guard-api/internal/repository"
	"github.com/noah-isme/legalbot-guard-api/internal/risk"
	"github.com/noah-isme/legalbot-guard-api/internal/router"
	"github.com/noah-isme/legalbot-guard-api/internal/service"
	cloud "github.com/noah-isme/legalbot-guard-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; rate limits and alerts stay local to this instance")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var storage service.BackupStorage
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	} else {
		logger.Info().Msg("cloudinary not configured; backups are returned inline")
	}

	evaluator, err := risk.NewEvaluator(cfg.RiskCaseThreshold)
	if err != nil {
		log.Fatalf("failed to build risk evaluator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	activityRepo := repository.NewActivityLogRepository(db)
	banRepo := repository.NewBanRepository(db)
	suspiciousRepo := repository.NewSuspiciousActivityRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := service.NewModerationEventBus(redisClient, cfg.RealtimeChannel, natsConn, logger)
	bus.Start(ctx)

	moderationService := service.NewModerationService(suspiciousRepo, bus, validate, logger)
	activityService := service.NewActivityService(activityRepo, banRepo, evaluator, moderationService, validate, service.ActivityServiceConfig{
		QueryCap:     cfg.ActivityQueryCap,
		HistoryLimit: cfg.RiskHistoryLimit,
	}, logger)

	audit := service.NewAuditTrail(activityService, service.AuditTrailConfig{
		Buffer:     cfg.AuditBuffer,
		MaxRetries: cfg.AuditMaxRetries,
		Backoff:    cfg.AuditRetryBackoff,
	}, logger)
	audit.Start(ctx)
	go drainAuditErrors(ctx, audit, logger)

	banService := service.NewBanService(banRepo, profileRepo, audit, bus, validate, logger)
	backupService := service.NewBackupService(activityRepo, banRepo, suspiciousRepo, storage, audit, bus, cfg.ActivityQueryCap, logger)

	var limiterStorage fiber.Storage
	if redisClient != nil {
		limiterStorage = middleware.NewRedisStorage(cfg.RedisURL)
		defer limiterStorage.Close()
	}

	guard := router.NewGuard(router.AuthChain{
		JWT:     middleware.JWTProtected(cfg.JWTSecret),
		Profile: middleware.ResolveProfile(profileRepo, logger),
		BanGate: middleware.BanGate(banService, logger),
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler:   handler.NewActivityHandler(activityService, guard, middleware.RateLimit("activity", cfg.RateLimitMax, cfg.RateLimitWindow, limiterStorage), logger),
		BanHandler:        handler.NewBanHandler(banService, guard, logger),
		SuspiciousHandler: handler.NewSuspiciousHandler(moderationService, guard, logger),
		BackupHandler:     handler.NewBackupHandler(backupService, guard, logger),
		AlertsHandler:     handler.NewAlertsHandler(bus, guard, logger),
		CheckBanLimiter:   middleware.RateLimit("check-ban", cfg.RateLimitMax, cfg.RateLimitWindow, limiterStorage),
		HealthPing:        sqlDB.Ping,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("moderation api listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
	audit.Close()
	cancel()
}

func drainAuditErrors(ctx context.Context, audit service.AuditTrail, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-audit.Errors():
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("audit entry lost")
		}
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
