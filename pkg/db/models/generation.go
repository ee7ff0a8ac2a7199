package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// Generation is one try-on run: the two input images, the provider task
// that renders them, and the terminal outcome.
type Generation struct {
	ID              uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	ModelImageURL   string                 `gorm:"column:model_image_url;type:text;not null"`
	GarmentImageURL string                 `gorm:"column:garment_image_url;type:text;not null"`
	Category        enums.GarmentCategory  `gorm:"column:category;type:garment_category;not null"`
	PerformanceMode enums.PerformanceMode  `gorm:"column:performance_mode;type:performance_mode;not null;default:'balanced'"`
	NumSamples      int                    `gorm:"column:num_samples;not null;default:1"`
	Seed            int64                  `gorm:"column:seed;not null;default:42"`
	Status          enums.GenerationStatus `gorm:"column:status;type:generation_status;not null;default:'pending'"`
	TaskID          *string                `gorm:"column:task_id;type:text;uniqueIndex"`
	ResultImageURL  *string                `gorm:"column:result_image_url;type:text"`
	ErrorMessage    *string                `gorm:"column:error_message;type:text"`
	IsFavorite      bool                   `gorm:"column:is_favorite;not null;default:false"`
	DeletedAt       *time.Time             `gorm:"column:deleted_at;index"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
