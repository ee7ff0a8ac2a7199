package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID               uuid.UUID              `json:"id"`
	Email            string                 `json:"email"`
	FirstName        string                 `json:"first_name"`
	LastName         *string                `json:"last_name,omitempty"`
	Credits          int                    `json:"credits"`
	SubscriptionTier enums.SubscriptionTier `json:"subscription_tier"`
	IsActive         bool                   `json:"is_active"`
	LastLoginAt      *time.Time             `json:"last_login_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email            string
	PasswordHash     string
	FirstName        string
	LastName         *string
	SubscriptionTier enums.SubscriptionTier
	IsActive         *bool
}

// UpdateProfileDTO carries the mutable profile fields. Nil means unchanged.
type UpdateProfileDTO struct {
	FirstName *string
	LastName  *string
}

// CreditBalanceDTO reports the user's remaining credits alongside their plan.
type CreditBalanceDTO struct {
	Credits          int                    `json:"credits"`
	SubscriptionTier enums.SubscriptionTier `json:"subscription_tier"`
	MonthlyCredits   int                    `json:"monthly_credits"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Credits:          u.Credits,
		SubscriptionTier: u.SubscriptionTier,
		IsActive:         u.IsActive,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	tier := c.SubscriptionTier
	if !tier.IsValid() {
		tier = enums.SubscriptionTierFree
	}

	return &models.User{
		Email:            c.Email,
		PasswordHash:     c.PasswordHash,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		SubscriptionTier: tier,
		Credits:          tier.MonthlyCredits(),
		IsActive:         isActive,
	}
}
