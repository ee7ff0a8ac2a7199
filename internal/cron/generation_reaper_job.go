package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

const (
	defaultStaleRunCeiling = 10 * time.Minute
	reaperBatchSize        = 100
	reaperFailureReason    = "generation abandoned after losing its worker"
)

type reaperGenerationsRepo interface {
	ListStuckBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Generation, error)
}

type terminalFailer interface {
	Fail(ctx context.Context, userID, generationID uuid.UUID, reason string) (bool, error)
}

// GenerationReaperJobParams configure the stale-run reaper.
type GenerationReaperJobParams struct {
	Logger          *logger.Logger
	Repository      reaperGenerationsRepo
	Terminal        terminalFailer
	StaleRunCeiling time.Duration
}

// NewGenerationReaperJob fails runs whose worker died without reaching a
// terminal state. It reuses the shared terminal writer, so a run that a live
// poller finishes concurrently is left alone.
func NewGenerationReaperJob(params GenerationReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("generations repository required")
	}
	if params.Terminal == nil {
		return nil, fmt.Errorf("terminal writer required")
	}
	ceiling := params.StaleRunCeiling
	if ceiling <= 0 {
		ceiling = defaultStaleRunCeiling
	}
	return &generationReaperJob{
		logg:     params.Logger,
		repo:     params.Repository,
		terminal: params.Terminal,
		ceiling:  ceiling,
		now:      time.Now,
	}, nil
}

type generationReaperJob struct {
	logg     *logger.Logger
	repo     reaperGenerationsRepo
	terminal terminalFailer
	ceiling  time.Duration
	now      func() time.Time
}

func (j *generationReaperJob) Name() string { return "generation-reaper" }

func (j *generationReaperJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ceiling)
	stuck, err := j.repo.ListStuckBefore(ctx, cutoff, reaperBatchSize)
	if err != nil {
		return fmt.Errorf("list stuck generations: %w", err)
	}

	reaped := 0
	var errs []error
	for i := range stuck {
		generation := &stuck[i]
		applied, err := j.terminal.Fail(ctx, generation.UserID, generation.ID, reaperFailureReason)
		if err != nil {
			errs = append(errs, fmt.Errorf("reap generation %s: %w", generation.ID, err))
			continue
		}
		if applied {
			reaped++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"stuck":  len(stuck),
		"reaped": reaped,
	})
	j.logg.Info(logCtx, "generation reaper complete")
	return multierr.Combine(errs...)
}
