package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// GenerationStartedEvent is emitted when the orchestrator accepts a run.
type GenerationStartedEvent struct {
	GenerationID uuid.UUID             `json:"generation_id"`
	UserID       uuid.UUID             `json:"user_id"`
	Category     enums.GarmentCategory `json:"category"`
	StartedAt    time.Time             `json:"started_at"`
}

// GenerationCompletedEvent carries the rendered result for notification fan-out.
type GenerationCompletedEvent struct {
	GenerationID   uuid.UUID `json:"generation_id"`
	UserID         uuid.UUID `json:"user_id"`
	ResultImageURL string    `json:"result_image_url"`
	CreditsLeft    int       `json:"credits_left"`
	CompletedAt    time.Time `json:"completed_at"`
}

// GenerationFailedEvent reports a terminal failure and its reason.
type GenerationFailedEvent struct {
	GenerationID uuid.UUID `json:"generation_id"`
	UserID       uuid.UUID `json:"user_id"`
	Reason       string    `json:"reason"`
	FailedAt     time.Time `json:"failed_at"`
}

// GenerationCanceledEvent is emitted when the user stops an active run.
type GenerationCanceledEvent struct {
	GenerationID uuid.UUID `json:"generation_id"`
	UserID       uuid.UUID `json:"user_id"`
	CanceledAt   time.Time `json:"canceled_at"`
}

// CreditsLowEvent warns that a user is about to run out of credits.
type CreditsLowEvent struct {
	UserID      uuid.UUID `json:"user_id"`
	CreditsLeft int       `json:"credits_left"`
}
