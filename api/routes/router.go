package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tryonstudio/tryon-backend/api/controllers"
	webhookcontrollers "github.com/tryonstudio/tryon-backend/api/controllers/webhooks"
	"github.com/tryonstudio/tryon-backend/api/middleware"
	"github.com/tryonstudio/tryon-backend/internal/auth"
	"github.com/tryonstudio/tryon-backend/internal/generations"
	"github.com/tryonstudio/tryon-backend/internal/notifications"
	"github.com/tryonstudio/tryon-backend/internal/uploads"
	"github.com/tryonstudio/tryon-backend/internal/users"
	"github.com/tryonstudio/tryon-backend/pkg/auth/session"
	"github.com/tryonstudio/tryon-backend/pkg/config"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
	"github.com/tryonstudio/tryon-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	SessionManager sessionManager
	Readiness      map[string]controllers.Pinger

	AuthService     auth.Service
	RegisterService auth.RegisterService
	UsersService    users.Service
	UploadsService  uploads.Service
	GalleryService  generations.Service
	Orchestrator    *generations.Orchestrator
	Notifications   notifications.Service

	GenerationsRepo generations.Repository
	TerminalWriter  *generations.TerminalWriter
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/fashn", webhookcontrollers.FashnWebhook(p.GenerationsRepo, p.TerminalWriter, cfg.Fashn, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.RegisterService, p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UserProfile(p.UsersService, logg))
			r.Patch("/", controllers.UserUpdateProfile(p.UsersService, logg))
			r.Get("/credits", controllers.UserCredits(p.UsersService, logg))
		})

		r.Route("/studio", func(r chi.Router) {
			r.Route("/uploads", func(r chi.Router) {
				r.Post("/", controllers.StudioRegisterUpload(p.UploadsService, logg))
				r.Get("/{uploadId}", controllers.StudioGetUpload(p.UploadsService, logg))
			})
			r.Route("/generations", func(r chi.Router) {
				r.Post("/", controllers.StudioStartGeneration(p.Orchestrator, logg))
				r.Get("/{generationId}", controllers.StudioGenerationProgress(p.Orchestrator, logg))
				r.Post("/{generationId}/cancel", controllers.StudioCancelGeneration(p.Orchestrator, logg))
			})
		})

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", controllers.GalleryList(p.GalleryService, logg))
			r.Get("/trash", controllers.GalleryTrash(p.GalleryService, logg))
			r.Get("/{generationId}", controllers.GalleryGet(p.GalleryService, logg))
			r.Post("/{generationId}/favorite", controllers.GalleryToggleFavorite(p.GalleryService, logg))
			r.Delete("/{generationId}", controllers.GalleryDelete(p.GalleryService, logg))
			r.Post("/{generationId}/restore", controllers.GalleryRestore(p.GalleryService, logg))
			r.Delete("/{generationId}/purge", controllers.GalleryPurge(p.GalleryService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationsUnreadCount(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})
	})

	return r
}
