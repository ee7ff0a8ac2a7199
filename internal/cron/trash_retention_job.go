package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

const defaultTrashTTL = 30 * 24 * time.Hour

type trashRetentionRepo interface {
	PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TrashRetentionJobParams configure the trash retention job.
type TrashRetentionJobParams struct {
	Logger     *logger.Logger
	Repository trashRetentionRepo
	TrashTTL   time.Duration
}

// NewTrashRetentionJob hard-deletes generations that sat in the trash past
// the retention window.
func NewTrashRetentionJob(params TrashRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("generations repository required")
	}
	ttl := params.TrashTTL
	if ttl <= 0 {
		ttl = defaultTrashTTL
	}
	return &trashRetentionJob{
		logg: params.Logger,
		repo: params.Repository,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

type trashRetentionJob struct {
	logg *logger.Logger
	repo trashRetentionRepo
	ttl  time.Duration
	now  func() time.Time
}

func (j *trashRetentionJob) Name() string { return "trash-retention" }

func (j *trashRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.repo.PurgeTrashedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("trash retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "trash retention complete")
	return nil
}
