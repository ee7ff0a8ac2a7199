package generations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	"github.com/tryonstudio/tryon-backend/pkg/pagination"
)

// Repository exposes persistence helpers for generations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, generation *models.Generation) error
	FindForUser(ctx context.Context, userID, generationID uuid.UUID) (*models.Generation, error)
	FindByTaskID(ctx context.Context, taskID string) (*models.Generation, error)
	List(ctx context.Context, params listGenerationsParams) ([]models.Generation, *pagination.Cursor, error)
	MarkProcessing(ctx context.Context, generationID uuid.UUID, taskID string) (bool, error)
	MarkCompleted(ctx context.Context, generationID uuid.UUID, resultImageURL string) (bool, error)
	MarkFailed(ctx context.Context, generationID uuid.UUID, reason string) (bool, error)
	ToggleFavorite(ctx context.Context, userID, generationID uuid.UUID) (*models.Generation, error)
	SoftDelete(ctx context.Context, userID, generationID uuid.UUID, at time.Time) (bool, error)
	Restore(ctx context.Context, userID, generationID uuid.UUID) (bool, error)
	Purge(ctx context.Context, userID, generationID uuid.UUID) (bool, error)
	PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListStuckBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Generation, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a generations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listGenerationsParams struct {
	UserID        uuid.UUID
	Limit         int
	Cursor        *pagination.Cursor
	FavoritesOnly bool
	Trashed       bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, generation *models.Generation) error {
	return r.db.WithContext(ctx).Create(generation).Error
}

func (r *repositoryImpl) FindForUser(ctx context.Context, userID, generationID uuid.UUID) (*models.Generation, error) {
	var generation models.Generation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", generationID, userID).
		First(&generation).Error
	if err != nil {
		return nil, err
	}
	return &generation, nil
}

func (r *repositoryImpl) FindByTaskID(ctx context.Context, taskID string) (*models.Generation, error) {
	var generation models.Generation
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		First(&generation).Error
	if err != nil {
		return nil, err
	}
	return &generation, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listGenerationsParams) ([]models.Generation, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Generation{}).Where("user_id = ?", params.UserID)
	if params.Trashed {
		query = query.Where("deleted_at IS NOT NULL")
	} else {
		query = query.Where("deleted_at IS NULL")
	}
	if params.FavoritesOnly {
		query = query.Where("is_favorite = ?", true)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Generation
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// MarkProcessing records the provider task and moves the run forward. The
// guard keeps the transition strictly pending to processing.
func (r *repositoryImpl) MarkProcessing(ctx context.Context, generationID uuid.UUID, taskID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("id = ? AND status = ?", generationID, enums.GenerationStatusPending).
		Updates(map[string]any{
			"task_id": taskID,
			"status":  enums.GenerationStatusProcessing,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted writes the terminal completed state. Conditional on a
// non-terminal status so racing writers collapse to one winner.
func (r *repositoryImpl) MarkCompleted(ctx context.Context, generationID uuid.UUID, resultImageURL string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("id = ? AND status IN ?", generationID, nonTerminalStatuses()).
		Updates(map[string]any{
			"status":           enums.GenerationStatusCompleted,
			"result_image_url": resultImageURL,
			"error_message":    nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed writes the terminal failed state under the same non-terminal guard.
func (r *repositoryImpl) MarkFailed(ctx context.Context, generationID uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("id = ? AND status IN ?", generationID, nonTerminalStatuses()).
		Updates(map[string]any{
			"status":        enums.GenerationStatusFailed,
			"error_message": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ToggleFavorite(ctx context.Context, userID, generationID uuid.UUID) (*models.Generation, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("id = ? AND user_id = ?", generationID, userID).
		Updates(map[string]any{"is_favorite": gorm.Expr("NOT is_favorite")})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindForUser(ctx, userID, generationID)
}

func (r *repositoryImpl) SoftDelete(ctx context.Context, userID, generationID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", generationID, userID).
		Updates(map[string]any{"deleted_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Restore(ctx context.Context, userID, generationID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Generation{}).
		Where("id = ? AND user_id = ? AND deleted_at IS NOT NULL", generationID, userID).
		Updates(map[string]any{"deleted_at": nil})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Purge(ctx context.Context, userID, generationID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", generationID, userID).
		Delete(&models.Generation{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.Generation{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) ListStuckBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Generation, error) {
	var rows []models.Generation
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", nonTerminalStatuses(), cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func nonTerminalStatuses() []enums.GenerationStatus {
	return []enums.GenerationStatus{
		enums.GenerationStatusPending,
		enums.GenerationStatusProcessing,
	}
}
