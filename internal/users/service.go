package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
)

// Service exposes the profile and credit operations backing /users/me.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileDTO) (*UserDTO, error)
	CreditBalance(ctx context.Context, userID uuid.UUID) (*CreditBalanceDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a users service backed by the provided repository.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileDTO) (*UserDTO, error) {
	if input.FirstName != nil {
		trimmed := strings.TrimSpace(*input.FirstName)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name cannot be empty")
		}
		input.FirstName = &trimmed
	}
	if input.LastName != nil {
		trimmed := strings.TrimSpace(*input.LastName)
		input.LastName = &trimmed
	}

	user, err := s.repo.UpdateProfile(ctx, userID, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return FromModel(user), nil
}

func (s *service) CreditBalance(ctx context.Context, userID uuid.UUID) (*CreditBalanceDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	return &CreditBalanceDTO{
		Credits:          user.Credits,
		SubscriptionTier: user.SubscriptionTier,
		MonthlyCredits:   user.SubscriptionTier.MonthlyCredits(),
	}, nil
}
