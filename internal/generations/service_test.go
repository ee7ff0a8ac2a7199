package generations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tryonstudio/tryon-backend/pkg/enums"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
)

func TestServiceListPagesThroughCursor(t *testing.T) {
	db := setupGenerationsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	userID := uuid.New()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedGeneration(t, db, userID, seedGenerationOpts{
			status:    enums.GenerationStatusCompleted,
			createdAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	first, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.Cursor)
	assert.True(t, first.Items[1].CreatedAt.After(second.Items[0].CreatedAt))
}

func TestServiceListRejectsMalformedCursor(t *testing.T) {
	db := setupGenerationsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 10, Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestServiceGetScopedToOwner(t *testing.T) {
	db := setupGenerationsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	found, err := svc.Get(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.ID, found.ID)

	_, err = svc.Get(context.Background(), uuid.New(), generation.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceTrashLifecycleConflicts(t *testing.T) {
	db := setupGenerationsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	// Restoring a live row is a state conflict, not a missing row.
	err = svc.Restore(context.Background(), userID, generation.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	require.NoError(t, svc.SoftDelete(context.Background(), userID, generation.ID))

	err = svc.SoftDelete(context.Background(), userID, generation.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	require.NoError(t, svc.Restore(context.Background(), userID, generation.ID))
	require.NoError(t, svc.Purge(context.Background(), userID, generation.ID))

	err = svc.Purge(context.Background(), userID, generation.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	err = svc.SoftDelete(context.Background(), userID, generation.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceToggleFavorite(t *testing.T) {
	db := setupGenerationsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	toggled, err := svc.ToggleFavorite(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)

	toggled, err = svc.ToggleFavorite(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsFavorite)

	_, err = svc.ToggleFavorite(context.Background(), uuid.New(), generation.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
