package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

type fakeTrashRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeTrashRepo) PurgeTrashedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestTrashRetentionJobPurgesExpiredRows(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeTrashRepo{deleted: 7}
	jobIface, err := NewTrashRetentionJob(TrashRetentionJobParams{
		Logger:     testLogger(),
		Repository: repo,
		TrashTTL:   720 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTrashRetentionJob: %v", err)
	}
	job := jobIface.(*trashRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-720 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestTrashRetentionJobPropagatesErrors(t *testing.T) {
	jobIface, err := NewTrashRetentionJob(TrashRetentionJobParams{
		Logger:     testLogger(),
		Repository: &fakeTrashRepo{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewTrashRetentionJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeReaperRepo struct {
	stuck []models.Generation
	err   error
}

func (f *fakeReaperRepo) ListStuckBefore(_ context.Context, _ time.Time, _ int) ([]models.Generation, error) {
	return f.stuck, f.err
}

type fakeTerminal struct {
	failed  []uuid.UUID
	applied bool
	err     error
}

func (f *fakeTerminal) Fail(_ context.Context, _, generationID uuid.UUID, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.failed = append(f.failed, generationID)
	return f.applied, nil
}

func TestGenerationReaperJobFailsStuckRuns(t *testing.T) {
	stuck := []models.Generation{
		{ID: uuid.New(), UserID: uuid.New()},
		{ID: uuid.New(), UserID: uuid.New()},
	}
	terminal := &fakeTerminal{applied: true}
	jobIface, err := NewGenerationReaperJob(GenerationReaperJobParams{
		Logger:          testLogger(),
		Repository:      &fakeReaperRepo{stuck: stuck},
		Terminal:        terminal,
		StaleRunCeiling: 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewGenerationReaperJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(terminal.failed) != 2 {
		t.Fatalf("expected 2 reaped runs, got %d", len(terminal.failed))
	}
}

func TestGenerationReaperJobCollectsWriteErrors(t *testing.T) {
	jobIface, err := NewGenerationReaperJob(GenerationReaperJobParams{
		Logger:     testLogger(),
		Repository: &fakeReaperRepo{stuck: []models.Generation{{ID: uuid.New(), UserID: uuid.New()}}},
		Terminal:   &fakeTerminal{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("NewGenerationReaperJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeNotificationRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
}

func (f *fakeNotificationRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestNotificationCleanupJobUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationRepo{deleted: 3}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		Repository: repo,
		Retention:  2160 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job := jobIface.(*notificationCleanupJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-2160 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
}

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	return f.deleted, f.err
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestOutboxRetentionJobPrunesPublishedRows(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{deleted: 12}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-defaultOutboxRetention)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("expected min attempts %d, got %d", outboxMinAttempts, repo.minAttempts)
	}
}
