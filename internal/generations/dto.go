package generations

import (
	"time"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// GenerationDTO is the transport shape of a try-on run.
type GenerationDTO struct {
	ID              uuid.UUID              `json:"id"`
	ModelImageURL   string                 `json:"model_image_url"`
	GarmentImageURL string                 `json:"garment_image_url"`
	Category        enums.GarmentCategory  `json:"category"`
	PerformanceMode enums.PerformanceMode  `json:"performance_mode"`
	NumSamples      int                    `json:"num_samples"`
	Seed            int64                  `json:"seed"`
	Status          enums.GenerationStatus `json:"status"`
	TaskID          *string                `json:"task_id,omitempty"`
	ResultImageURL  *string                `json:"result_image_url,omitempty"`
	ErrorMessage    *string                `json:"error_message,omitempty"`
	IsFavorite      bool                   `json:"is_favorite"`
	DeletedAt       *time.Time             `json:"deleted_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// GenerationWithProgress pairs the persisted row with live run progress.
type GenerationWithProgress struct {
	GenerationDTO
	Progress int `json:"progress"`
}

// FromModel maps a persisted generation to its DTO.
func FromModel(g *models.Generation) *GenerationDTO {
	if g == nil {
		return nil
	}
	return &GenerationDTO{
		ID:              g.ID,
		ModelImageURL:   g.ModelImageURL,
		GarmentImageURL: g.GarmentImageURL,
		Category:        g.Category,
		PerformanceMode: g.PerformanceMode,
		NumSamples:      g.NumSamples,
		Seed:            g.Seed,
		Status:          g.Status,
		TaskID:          g.TaskID,
		ResultImageURL:  g.ResultImageURL,
		ErrorMessage:    g.ErrorMessage,
		IsFavorite:      g.IsFavorite,
		DeletedAt:       g.DeletedAt,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

// ListParams filters gallery queries.
type ListParams struct {
	UserID        uuid.UUID
	Limit         int
	Cursor        string
	FavoritesOnly bool
}

// ListResult is one page of gallery rows plus the next cursor.
type ListResult struct {
	Items  []GenerationDTO `json:"items"`
	Cursor string          `json:"cursor,omitempty"`
}
