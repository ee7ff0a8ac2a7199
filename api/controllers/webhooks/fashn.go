package webhooks

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/api/responses"
	"github.com/tryonstudio/tryon-backend/api/validators"
	"github.com/tryonstudio/tryon-backend/pkg/config"
	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/fashn"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

// generationLookup resolves a provider task ID back to our row.
type generationLookup interface {
	FindByTaskID(ctx context.Context, taskID string) (*models.Generation, error)
}

// terminalWriter is the shared conditional terminal-state writer. The webhook
// and the poll loop race; whoever lands first wins and the loser is a no-op.
type terminalWriter interface {
	Complete(ctx context.Context, userID, generationID uuid.UUID, resultImageURL string) (bool, error)
	Fail(ctx context.Context, userID, generationID uuid.UUID, reason string) (bool, error)
}

type fashnWebhookPayload struct {
	ID     string   `json:"id" validate:"required"`
	Status string   `json:"status" validate:"required"`
	Output []string `json:"output,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// FashnWebhook ingests provider push callbacks as a fast path ahead of the
// poll loop.
func FashnWebhook(repo generationLookup, terminal terminalWriter, cfg config.FashnConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil || terminal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook dependencies unavailable"))
			return
		}

		if cfg.WebhookSecret != "" {
			provided := strings.TrimSpace(r.Header.Get("X-Fashn-Signature"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.WebhookSecret)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
				return
			}
		}

		var payload fashnWebhookPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := strings.ToLower(strings.TrimSpace(payload.Status))
		if status != fashn.RunStatusCompleted && status != fashn.RunStatusFailed {
			// Non-terminal callbacks carry nothing the poll loop will not
			// pick up on its own.
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		generation, err := repo.FindByTaskID(r.Context(), payload.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithGenerationID(ctx, generation.ID.String())
			ctx = logg.WithTaskID(ctx, payload.ID)
		}

		var applied bool
		switch status {
		case fashn.RunStatusCompleted:
			if len(payload.Output) == 0 || payload.Output[0] == "" {
				applied, err = terminal.Fail(ctx, generation.UserID, generation.ID, "provider completed without output")
			} else {
				applied, err = terminal.Complete(ctx, generation.UserID, generation.ID, payload.Output[0])
			}
		case fashn.RunStatusFailed:
			reason := payload.Error
			if reason == "" {
				reason = "generation failed"
			}
			applied, err = terminal.Fail(ctx, generation.UserID, generation.ID, reason)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			if applied {
				logg.Info(ctx, "webhook finalized generation")
			} else {
				logg.Debug(ctx, "webhook arrived after terminal write, ignoring")
			}
		}
		responses.WriteSuccess(w, map[string]bool{"applied": applied})
	}
}
