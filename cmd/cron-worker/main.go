package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tryonstudio/tryon-backend/internal/cron"
	"github.com/tryonstudio/tryon-backend/internal/generations"
	"github.com/tryonstudio/tryon-backend/internal/notifications"
	"github.com/tryonstudio/tryon-backend/pkg/config"
	"github.com/tryonstudio/tryon-backend/pkg/db"
	"github.com/tryonstudio/tryon-backend/pkg/instance"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
	"github.com/tryonstudio/tryon-backend/pkg/metrics"
	"github.com/tryonstudio/tryon-backend/pkg/migrate"
	"github.com/tryonstudio/tryon-backend/pkg/outbox"
	"github.com/tryonstudio/tryon-backend/pkg/redis"
)

const lockKeyFormat = "tryon:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	generationsRepo := generations.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	terminal, err := generations.NewTerminalWriter(generations.TerminalWriterParams{
		TxRunner: dbClient,
		Outbox:   outboxService,
		RunLocks: redisClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create terminal writer", err)
		os.Exit(1)
	}

	trashJob, err := cron.NewTrashRetentionJob(cron.TrashRetentionJobParams{
		Logger:     logg,
		Repository: generationsRepo,
		TrashTTL:   cfg.Retention.TrashTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create trash retention job", err)
		os.Exit(1)
	}

	reaperJob, err := cron.NewGenerationReaperJob(cron.GenerationReaperJobParams{
		Logger:          logg,
		Repository:      generationsRepo,
		Terminal:        terminal,
		StaleRunCeiling: cfg.Retention.StaleRunCeiling,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create generation reaper job", err)
		os.Exit(1)
	}

	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
		Retention:  cfg.Retention.NotificationTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(trashJob, reaperJob, notificationJob, outboxJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
