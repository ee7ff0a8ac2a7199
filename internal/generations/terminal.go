package generations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/internal/users"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
	"github.com/tryonstudio/tryon-backend/pkg/outbox"
	"github.com/tryonstudio/tryon-backend/pkg/outbox/payloads"
)

// lowCreditsThreshold is the balance at or below which a warning event fires.
const lowCreditsThreshold = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type runLockReleaser interface {
	ReleaseRunLock(ctx context.Context, userID string) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type creditSpender interface {
	DecrementCredit(ctx context.Context, id uuid.UUID) (int, error)
}

// TerminalWriter is the one component allowed to move a generation into a
// terminal state. The poller, the provider webhook, cancellation, and the
// stale-run reaper all funnel through it; the conditional repo updates make
// racing writers collapse to a single winner.
type TerminalWriter struct {
	tx       txRunner
	repoFor  func(tx *gorm.DB) Repository
	usersFor func(tx *gorm.DB) creditSpender
	outbox   outboxEmitter
	locks    runLockReleaser
	logg     *logger.Logger
}

// TerminalWriterParams bundles the terminal writer dependencies.
type TerminalWriterParams struct {
	TxRunner     txRunner
	RepoFactory  func(tx *gorm.DB) Repository
	UsersFactory func(tx *gorm.DB) creditSpender
	Outbox       outboxEmitter
	RunLocks     runLockReleaser
	Logger       *logger.Logger
}

// NewTerminalWriter builds the shared terminal-state writer.
func NewTerminalWriter(params TerminalWriterParams) (*TerminalWriter, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	repoFor := params.RepoFactory
	if repoFor == nil {
		repoFor = func(tx *gorm.DB) Repository { return NewRepository(tx) }
	}
	usersFor := params.UsersFactory
	if usersFor == nil {
		usersFor = func(tx *gorm.DB) creditSpender { return users.NewRepository(tx) }
	}
	return &TerminalWriter{
		tx:       params.TxRunner,
		repoFor:  repoFor,
		usersFor: usersFor,
		outbox:   params.Outbox,
		locks:    params.RunLocks,
		logg:     params.Logger,
	}, nil
}

// Complete transitions the run to completed, spends one credit, and queues
// the completion event, all in one transaction. Returns false when another
// writer already finished the run.
func (w *TerminalWriter) Complete(ctx context.Context, userID, generationID uuid.UUID, resultImageURL string) (bool, error) {
	if resultImageURL == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "result image URL is required")
	}

	applied := false
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := w.repoFor(tx).MarkCompleted(ctx, generationID, resultImageURL)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark generation completed")
		}
		if !updated {
			return nil
		}
		applied = true

		creditsLeft, err := w.usersFor(tx).DecrementCredit(ctx, userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		event := outbox.DomainEvent{
			EventType:     enums.EventGenerationCompleted,
			AggregateType: enums.AggregateGeneration,
			AggregateID:   generationID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.GenerationCompletedEvent{
				GenerationID:   generationID,
				UserID:         userID,
				ResultImageURL: resultImageURL,
				CreditsLeft:    creditsLeft,
				CompletedAt:    now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := w.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue completion event")
		}

		if creditsLeft <= lowCreditsThreshold {
			warn := outbox.DomainEvent{
				EventType:     enums.EventCreditsLow,
				AggregateType: enums.AggregateUser,
				AggregateID:   userID,
				Actor:         &outbox.ActorRef{UserID: userID},
				Data: payloads.CreditsLowEvent{
					UserID:      userID,
					CreditsLeft: creditsLeft,
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := w.outbox.Emit(ctx, tx, warn); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue credits warning")
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	w.releaseLock(ctx, userID)
	return applied, nil
}

// Fail transitions the run to failed with the given reason. Returns false
// when another writer already finished the run.
func (w *TerminalWriter) Fail(ctx context.Context, userID, generationID uuid.UUID, reason string) (bool, error) {
	if reason == "" {
		reason = "generation failed"
	}

	applied := false
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := w.repoFor(tx).MarkFailed(ctx, generationID, reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark generation failed")
		}
		if !updated {
			return nil
		}
		applied = true

		now := time.Now().UTC()
		event := outbox.DomainEvent{
			EventType:     enums.EventGenerationFailed,
			AggregateType: enums.AggregateGeneration,
			AggregateID:   generationID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.GenerationFailedEvent{
				GenerationID: generationID,
				UserID:       userID,
				Reason:       reason,
				FailedAt:     now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := w.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue failure event")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	w.releaseLock(ctx, userID)
	return applied, nil
}

// Cancel is Fail with a canceled event so consumers can tell a user stop
// from a provider failure.
func (w *TerminalWriter) Cancel(ctx context.Context, userID, generationID uuid.UUID) (bool, error) {
	applied := false
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := w.repoFor(tx).MarkFailed(ctx, generationID, "generation canceled")
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark generation canceled")
		}
		if !updated {
			return nil
		}
		applied = true

		now := time.Now().UTC()
		event := outbox.DomainEvent{
			EventType:     enums.EventGenerationCanceled,
			AggregateType: enums.AggregateGeneration,
			AggregateID:   generationID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.GenerationCanceledEvent{
				GenerationID: generationID,
				UserID:       userID,
				CanceledAt:   now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := w.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue cancellation event")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	w.releaseLock(ctx, userID)
	return applied, nil
}

func (w *TerminalWriter) releaseLock(ctx context.Context, userID uuid.UUID) {
	if w.locks == nil {
		return
	}
	if err := w.locks.ReleaseRunLock(ctx, userID.String()); err != nil && w.logg != nil {
		w.logg.Warn(w.logg.WithUserID(ctx, userID.String()), "release run lock failed")
	}
}
