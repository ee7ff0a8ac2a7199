package generations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/pagination"
)

// Service covers the gallery surface: listing, favorites, and the trash
// lifecycle. Run orchestration lives on the Orchestrator.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListTrash(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, userID, generationID uuid.UUID) (*GenerationDTO, error)
	ToggleFavorite(ctx context.Context, userID, generationID uuid.UUID) (*GenerationDTO, error)
	SoftDelete(ctx context.Context, userID, generationID uuid.UUID) error
	Restore(ctx context.Context, userID, generationID uuid.UUID) error
	Purge(ctx context.Context, userID, generationID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService constructs a gallery service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("generations repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	return s.list(ctx, params, false)
}

func (s *service) ListTrash(ctx context.Context, params ListParams) (*ListResult, error) {
	return s.list(ctx, params, true)
}

func (s *service) list(ctx context.Context, params ListParams, trashed bool) (*ListResult, error) {
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.List(ctx, listGenerationsParams{
		UserID:        params.UserID,
		Limit:         params.Limit,
		Cursor:        cursor,
		FavoritesOnly: params.FavoritesOnly,
		Trashed:       trashed,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list generations")
	}

	items := make([]GenerationDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}

	result := &ListResult{Items: items}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, userID, generationID uuid.UUID) (*GenerationDTO, error) {
	generation, err := s.repo.FindForUser(ctx, userID, generationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load generation")
	}
	return FromModel(generation), nil
}

func (s *service) ToggleFavorite(ctx context.Context, userID, generationID uuid.UUID) (*GenerationDTO, error) {
	generation, err := s.repo.ToggleFavorite(ctx, userID, generationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle favorite")
	}
	return FromModel(generation), nil
}

func (s *service) SoftDelete(ctx context.Context, userID, generationID uuid.UUID) error {
	updated, err := s.repo.SoftDelete(ctx, userID, generationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "soft delete generation")
	}
	if !updated {
		return s.mutationMiss(ctx, userID, generationID, "generation already in trash")
	}
	return nil
}

func (s *service) Restore(ctx context.Context, userID, generationID uuid.UUID) error {
	updated, err := s.repo.Restore(ctx, userID, generationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore generation")
	}
	if !updated {
		return s.mutationMiss(ctx, userID, generationID, "generation is not in trash")
	}
	return nil
}

func (s *service) Purge(ctx context.Context, userID, generationID uuid.UUID) error {
	deleted, err := s.repo.Purge(ctx, userID, generationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purge generation")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
	}
	return nil
}

// mutationMiss distinguishes a missing row from a state conflict after a
// guarded update matched nothing.
func (s *service) mutationMiss(ctx context.Context, userID, generationID uuid.UUID, conflictMessage string) error {
	if _, err := s.repo.FindForUser(ctx, userID, generationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "generation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load generation")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, conflictMessage)
}
