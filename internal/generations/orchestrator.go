package generations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/pkg/config"
	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/fashn"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
	"github.com/tryonstudio/tryon-backend/pkg/metrics"
	"github.com/tryonstudio/tryon-backend/pkg/outbox"
	"github.com/tryonstudio/tryon-backend/pkg/outbox/payloads"
)

type providerClient interface {
	Submit(ctx context.Context, req fashn.SubmitRequest) (string, error)
	Status(ctx context.Context, taskID string) (*fashn.RunStatus, error)
}

type runLockManager interface {
	AcquireRunLock(ctx context.Context, userID, generationID string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, userID string) error
}

type uploadAssetReader interface {
	FindForUser(ctx context.Context, userID, assetID uuid.UUID) (*models.UploadAsset, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// StartInput is the payload for starting a try-on run.
type StartInput struct {
	ModelUploadID   uuid.UUID             `json:"model_upload_id"`
	GarmentUploadID uuid.UUID             `json:"garment_upload_id"`
	Category        enums.GarmentCategory `json:"category"`
	PerformanceMode enums.PerformanceMode `json:"performance_mode,omitempty"`
	NumSamples      int                   `json:"num_samples,omitempty"`
	Seed            *int64                `json:"seed,omitempty"`
}

// Orchestrator owns the full run lifecycle: precondition checks, the insert,
// provider submit, the poll loop, and cancellation. Terminal state always
// goes through the TerminalWriter.
type Orchestrator struct {
	tx          txRunner
	repo        Repository
	repoFor     func(tx *gorm.DB) Repository
	uploads     uploadAssetReader
	users       userReader
	provider    providerClient
	locks       runLockManager
	terminal    *TerminalWriter
	outbox      outboxEmitter
	metrics     *metrics.GenerationMetrics
	logg        *logger.Logger
	runs        *runRegistry
	wg          sync.WaitGroup
	categoryMap map[string]string
	pollEvery   time.Duration
	maxAttempts int
	lockTTL     time.Duration
	defaultSeed int64
	defaultNum  int
}

// OrchestratorParams bundles the orchestrator dependencies.
type OrchestratorParams struct {
	TxRunner    txRunner
	Repo        Repository
	RepoFactory func(tx *gorm.DB) Repository
	Uploads     uploadAssetReader
	Users       userReader
	Provider    providerClient
	RunLocks    runLockManager
	Terminal    *TerminalWriter
	Outbox      outboxEmitter
	Metrics     *metrics.GenerationMetrics
	Logger      *logger.Logger
	FashnCfg    config.FashnConfig
	StudioCfg   config.StudioConfig
}

// NewOrchestrator builds the run orchestrator.
func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("generations repository required")
	}
	if params.Uploads == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client required")
	}
	if params.RunLocks == nil {
		return nil, fmt.Errorf("run lock manager required")
	}
	if params.Terminal == nil {
		return nil, fmt.Errorf("terminal writer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if len(params.FashnCfg.CategoryMap) == 0 {
		return nil, fmt.Errorf("category map required")
	}
	if params.FashnCfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if params.FashnCfg.MaxPollAttempts <= 0 {
		return nil, fmt.Errorf("max poll attempts must be positive")
	}

	repoFor := params.RepoFactory
	if repoFor == nil {
		repoFor = func(tx *gorm.DB) Repository { return NewRepository(tx) }
	}
	lockTTL := params.StudioCfg.RunLockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	defaultSeed := int64(params.StudioCfg.DefaultSeed)
	defaultNum := params.StudioCfg.DefaultNumSample
	if defaultNum <= 0 {
		defaultNum = 1
	}

	return &Orchestrator{
		tx:          params.TxRunner,
		repo:        params.Repo,
		repoFor:     repoFor,
		uploads:     params.Uploads,
		users:       params.Users,
		provider:    params.Provider,
		locks:       params.RunLocks,
		terminal:    params.Terminal,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		logg:        params.Logger,
		runs:        newRunRegistry(),
		categoryMap: params.FashnCfg.CategoryMap,
		pollEvery:   params.FashnCfg.PollInterval,
		maxAttempts: params.FashnCfg.MaxPollAttempts,
		lockTTL:     lockTTL,
		defaultSeed: defaultSeed,
		defaultNum:  defaultNum,
	}, nil
}

// StartGeneration validates preconditions, records the run, submits it to the
// provider, and begins polling in the background.
func (o *Orchestrator) StartGeneration(ctx context.Context, userID uuid.UUID, input StartInput) (*GenerationWithProgress, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid garment category")
	}
	providerCategory, ok := o.categoryMap[input.Category.String()]
	if !ok || strings.TrimSpace(providerCategory) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("category %q has no provider mapping", input.Category))
	}

	mode := input.PerformanceMode
	if mode == "" {
		mode = enums.PerformanceModeBalanced
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid performance mode")
	}

	numSamples := input.NumSamples
	if numSamples == 0 {
		numSamples = o.defaultNum
	}
	if numSamples < 1 || numSamples > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "num_samples must be between 1 and 5")
	}

	seed := o.defaultSeed
	if input.Seed != nil {
		seed = *input.Seed
	}

	modelAsset, err := o.loadAsset(ctx, userID, input.ModelUploadID, enums.UploadKindModel)
	if err != nil {
		return nil, err
	}
	if modelAsset.PrepState != enums.ModelPrepStateReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "model photo is still preparing")
	}
	garmentAsset, err := o.loadAsset(ctx, userID, input.GarmentUploadID, enums.UploadKindGarment)
	if err != nil {
		return nil, err
	}

	user, err := o.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if user.Credits < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient credits")
	}

	generationID := uuid.New()
	acquired, err := o.locks.AcquireRunLock(ctx, userID.String(), generationID.String(), o.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire run lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another generation is already running")
	}

	generation := &models.Generation{
		ID:              generationID,
		UserID:          userID,
		ModelImageURL:   modelAsset.PublicURL,
		GarmentImageURL: garmentAsset.PublicURL,
		Category:        input.Category,
		PerformanceMode: mode,
		NumSamples:      numSamples,
		Seed:            seed,
		Status:          enums.GenerationStatusPending,
	}

	err = o.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := o.repoFor(tx).Create(ctx, generation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create generation")
		}
		now := time.Now().UTC()
		return o.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGenerationStarted,
			AggregateType: enums.AggregateGeneration,
			AggregateID:   generationID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.GenerationStartedEvent{
				GenerationID: generationID,
				UserID:       userID,
				Category:     input.Category,
				StartedAt:    now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		_ = o.locks.ReleaseRunLock(ctx, userID.String())
		return nil, err
	}

	o.metrics.IncStarted()

	runCtx, cancel := context.WithCancel(context.Background())
	if o.logg != nil {
		runCtx = o.logg.WithGenerationID(o.logg.WithUserID(runCtx, userID.String()), generationID.String())
	}
	handle := o.runs.register(generationID, userID, cancel)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.runs.deregister(generationID)
		o.runPoll(runCtx, handle, generation, providerCategory)
	}()

	return &GenerationWithProgress{
		GenerationDTO: *FromModel(generation),
		Progress:      0,
	}, nil
}

// Cancel stops an active run and writes the canceled terminal state.
func (o *Orchestrator) Cancel(ctx context.Context, userID, generationID uuid.UUID) error {
	generation, err := o.repo.FindForUser(ctx, userID, generationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load generation")
	}
	if generation.Status == enums.GenerationStatusCompleted || generation.Status == enums.GenerationStatusFailed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "generation already finished")
	}

	if handle, ok := o.runs.get(generationID); ok {
		handle.cancel()
	}

	applied, err := o.terminal.Cancel(ctx, userID, generationID)
	if err != nil {
		return err
	}
	if applied {
		o.metrics.IncFailed("canceled")
	}
	return nil
}

// GetWithProgress merges the persisted row with live run progress.
func (o *Orchestrator) GetWithProgress(ctx context.Context, userID, generationID uuid.UUID) (*GenerationWithProgress, error) {
	generation, err := o.repo.FindForUser(ctx, userID, generationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load generation")
	}

	// Progress snaps to 100 only on completion. A failed run keeps the
	// handle's last value so the bar never implies success.
	progress := 0
	switch generation.Status {
	case enums.GenerationStatusCompleted:
		progress = 100
	default:
		if handle, ok := o.runs.get(generationID); ok {
			progress = handle.currentProgress()
		}
	}

	return &GenerationWithProgress{
		GenerationDTO: *FromModel(generation),
		Progress:      progress,
	}, nil
}

// ActiveRuns reports how many runs are currently polling.
func (o *Orchestrator) ActiveRuns() int {
	return o.runs.active()
}

// Shutdown cancels active runs and waits for their loops to exit.
func (o *Orchestrator) Shutdown() {
	o.runs.stopAll()
	o.wg.Wait()
}

func (o *Orchestrator) loadAsset(ctx context.Context, userID, assetID uuid.UUID, kind enums.UploadKind) (*models.UploadAsset, error) {
	if assetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s upload is required", kind))
	}
	asset, err := o.uploads.FindForUser(ctx, userID, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s upload not found", kind))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load upload asset")
	}
	if asset.Kind != kind {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("upload %s is not a %s photo", assetID, kind))
	}
	return asset, nil
}

func (o *Orchestrator) runPoll(ctx context.Context, handle *runHandle, generation *models.Generation, providerCategory string) {
	startedAt := time.Now()

	taskID, err := o.provider.Submit(ctx, fashn.SubmitRequest{
		ModelImage:   generation.ModelImageURL,
		GarmentImage: generation.GarmentImageURL,
		Category:     providerCategory,
		Mode:         generation.PerformanceMode.String(),
		NumSamples:   generation.NumSamples,
		Seed:         generation.Seed,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.failRun(ctx, generation, submitFailureReason(err), "submit", startedAt, 0)
		return
	}

	moved, err := o.repo.MarkProcessing(ctx, generation.ID, taskID)
	if err != nil {
		o.failRun(ctx, generation, "recording provider task failed", "submit", startedAt, 0)
		return
	}
	if !moved {
		// The row went terminal before the provider answered (cancel won).
		if o.logg != nil {
			o.logg.Info(ctx, "run already terminal after submit, abandoning poll")
		}
		return
	}

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		timer := time.NewTimer(o.pollEvery)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		status, err := o.provider.Status(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.failRun(ctx, generation, "provider status check failed", "status", startedAt, attempt)
			return
		}

		switch status.Status {
		case fashn.RunStatusCompleted:
			if len(status.Output) == 0 || strings.TrimSpace(status.Output[0]) == "" {
				o.failRun(ctx, generation, "provider completed without output", "empty_output", startedAt, attempt)
				return
			}
			o.completeRun(ctx, handle, generation, status.Output[0], startedAt, attempt)
			return
		case fashn.RunStatusFailed:
			reason := status.Error
			if reason == "" {
				reason = "generation failed"
			}
			o.failRun(ctx, generation, reason, "provider", startedAt, attempt)
			return
		default:
			handle.setProgress(pollProgress(attempt, o.maxAttempts))
		}
	}

	o.failRun(ctx, generation, fmt.Sprintf("generation timed out after %d status checks", o.maxAttempts), "timeout", startedAt, o.maxAttempts)
}

func (o *Orchestrator) completeRun(ctx context.Context, handle *runHandle, generation *models.Generation, resultURL string, startedAt time.Time, attempts int) {
	applied, err := o.terminal.Complete(context.WithoutCancel(ctx), generation.UserID, generation.ID, resultURL)
	if err != nil {
		if o.logg != nil {
			o.logg.Error(ctx, "write completed state", err)
		}
		return
	}
	if !applied {
		return
	}
	handle.setProgress(100)
	o.metrics.IncCompleted()
	o.metrics.ObserveRun(time.Since(startedAt), attempts)
	if o.logg != nil {
		o.logg.Info(ctx, "generation completed")
	}
}

func (o *Orchestrator) failRun(ctx context.Context, generation *models.Generation, reason, reasonLabel string, startedAt time.Time, attempts int) {
	applied, err := o.terminal.Fail(context.WithoutCancel(ctx), generation.UserID, generation.ID, reason)
	if err != nil {
		if o.logg != nil {
			o.logg.Error(ctx, "write failed state", err)
		}
		return
	}
	if !applied {
		return
	}
	o.metrics.IncFailed(reasonLabel)
	o.metrics.ObserveRun(time.Since(startedAt), attempts)
	if o.logg != nil {
		o.logg.Warn(ctx, fmt.Sprintf("generation failed: %s", reason))
	}
}

func submitFailureReason(err error) string {
	if pkgerrors.Is(err, pkgerrors.CodeRateLimit) {
		return "provider rate limited the request"
	}
	return "submitting the run to the provider failed"
}

// pollProgress advances toward but never reaches completion while polling.
func pollProgress(attempt, maxAttempts int) int {
	value := attempt * 100 / maxAttempts
	if value > 90 {
		value = 90
	}
	return value
}
