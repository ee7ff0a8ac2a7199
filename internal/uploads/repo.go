package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// Repository persists studio upload assets.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an uploads repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new upload asset row.
func (r *Repository) Create(ctx context.Context, asset *models.UploadAsset) (*models.UploadAsset, error) {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// FindForUser loads an asset scoped to its owner.
func (r *Repository) FindForUser(ctx context.Context, userID, assetID uuid.UUID) (*models.UploadAsset, error) {
	var asset models.UploadAsset
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", assetID, userID).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// MarkReady transitions a preparing asset to ready. Already-ready rows are
// left alone so the timer firing twice is harmless.
func (r *Repository) MarkReady(ctx context.Context, assetID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.UploadAsset{}).
		Where("id = ? AND prep_state <> ?", assetID, enums.ModelPrepStateReady).
		Updates(map[string]any{
			"prep_state": enums.ModelPrepStateReady,
			"ready_at":   at,
		}).Error
}

// Delete removes the asset row.
func (r *Repository) Delete(ctx context.Context, assetID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", assetID).
		Delete(&models.UploadAsset{}).Error
}
