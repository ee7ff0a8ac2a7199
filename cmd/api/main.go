package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tryonstudio/tryon-backend/api/controllers"
	"github.com/tryonstudio/tryon-backend/api/routes"
	internalauth "github.com/tryonstudio/tryon-backend/internal/auth"
	"github.com/tryonstudio/tryon-backend/internal/generations"
	"github.com/tryonstudio/tryon-backend/internal/notifications"
	"github.com/tryonstudio/tryon-backend/internal/uploads"
	"github.com/tryonstudio/tryon-backend/internal/users"
	"github.com/tryonstudio/tryon-backend/pkg/auth/session"
	"github.com/tryonstudio/tryon-backend/pkg/config"
	"github.com/tryonstudio/tryon-backend/pkg/db"
	"github.com/tryonstudio/tryon-backend/pkg/fashn"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
	"github.com/tryonstudio/tryon-backend/pkg/metrics"
	"github.com/tryonstudio/tryon-backend/pkg/migrate"
	"github.com/tryonstudio/tryon-backend/pkg/outbox"
	"github.com/tryonstudio/tryon-backend/pkg/redis"
	"github.com/tryonstudio/tryon-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	generationsRepo := generations.NewRepository(dbClient.DB())
	uploadsRepo := uploads.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := internalauth.NewService(internalauth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := internalauth.NewRegisterService(internalauth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	uploadsService, err := uploads.NewService(uploads.ServiceParams{
		Repo:      uploadsRepo,
		GCS:       gcsClient,
		Logger:    logg,
		Bucket:    cfg.GCS.BucketName,
		StudioCfg: cfg.Studio,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create uploads service", err)
		os.Exit(1)
	}
	defer uploadsService.Shutdown()

	galleryService, err := generations.NewService(generationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create gallery service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

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

	fashnClient, err := fashn.NewClient(cfg.Fashn)
	if err != nil {
		logg.Error(context.Background(), "failed to create provider client", err)
		os.Exit(1)
	}

	orchestrator, err := generations.NewOrchestrator(generations.OrchestratorParams{
		TxRunner:  dbClient,
		Repo:      generationsRepo,
		Uploads:   uploadsRepo,
		Users:     usersRepo,
		Provider:  fashnClient,
		RunLocks:  redisClient,
		Terminal:  terminal,
		Outbox:    outboxService,
		Metrics:   metrics.NewGenerationMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
		FashnCfg:  cfg.Fashn,
		StudioCfg: cfg.Studio,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create generation orchestrator", err)
		os.Exit(1)
	}
	defer orchestrator.Shutdown()

	handler := routes.NewRouter(routes.RouterParams{
		Config:          cfg,
		Logger:          logg,
		Redis:           redisClient,
		SessionManager:  sessionManager,
		Readiness:       controllers.ReadinessDeps(dbClient, redisClient, gcsClient, nil),
		AuthService:     authService,
		RegisterService: registerService,
		UsersService:    usersService,
		UploadsService:  uploadsService,
		GalleryService:  galleryService,
		Orchestrator:    orchestrator,
		Notifications:   notificationsService,
		GenerationsRepo: generationsRepo,
		TerminalWriter:  terminal,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
