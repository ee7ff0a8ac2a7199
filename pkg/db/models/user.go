package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string                 `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash     string                 `gorm:"column:password_hash;not null"`
	FirstName        string                 `gorm:"column:first_name;not null"`
	LastName         *string                `gorm:"column:last_name"`
	Credits          int                    `gorm:"column:credits;not null;default:0"`
	SubscriptionTier enums.SubscriptionTier `gorm:"column:subscription_tier;type:subscription_tier;not null;default:'free'"`
	IsActive         bool                   `gorm:"column:is_active;not null;default:true"`
	LastLoginAt      *time.Time             `gorm:"column:last_login_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
