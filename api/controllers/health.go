package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tryonstudio/tryon-backend/api/responses"
	"github.com/tryonstudio/tryon-backend/pkg/config"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the health-check surface a readiness dependency must expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tryon-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every dependency the API cannot serve without.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tryon-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "up"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// ReadinessDeps builds the dependency map for HealthReady, skipping nils.
func ReadinessDeps(db, redis, gcs, pubsub Pinger) map[string]Pinger {
	deps := map[string]Pinger{}
	if db != nil {
		deps["database"] = db
	}
	if redis != nil {
		deps["redis"] = redis
	}
	if gcs != nil {
		deps["gcs"] = gcs
	}
	if pubsub != nil {
		deps["pubsub"] = pubsub
	}
	return deps
}
