package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID           uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	GenerationID *uuid.UUID             `gorm:"column:generation_id;type:uuid"`
	Kind         enums.NotificationKind `gorm:"column:kind;type:notification_kind;not null"`
	Body         string                 `gorm:"column:body;type:text;not null"`
	ReadAt       *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt    time.Time              `gorm:"column:created_at;type:timestamptz;default:now()"`
}
