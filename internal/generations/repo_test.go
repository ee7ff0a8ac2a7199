package generations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

func setupGenerationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	generations := `
CREATE TABLE IF NOT EXISTS generations (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  model_image_url TEXT NOT NULL,
  garment_image_url TEXT NOT NULL,
  category TEXT NOT NULL,
  performance_mode TEXT NOT NULL DEFAULT 'balanced',
  num_samples INTEGER NOT NULL DEFAULT 1,
  seed INTEGER NOT NULL DEFAULT 42,
  status TEXT NOT NULL DEFAULT 'pending',
  task_id TEXT UNIQUE,
  result_image_url TEXT,
  error_message TEXT,
  is_favorite INTEGER NOT NULL DEFAULT 0,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(generations).Error)
	return db
}

type seedGenerationOpts struct {
	status    enums.GenerationStatus
	favorite  bool
	deletedAt *time.Time
	createdAt time.Time
	updatedAt time.Time
}

func seedGeneration(t *testing.T, db *gorm.DB, userID uuid.UUID, opts seedGenerationOpts) *models.Generation {
	t.Helper()

	if opts.status == "" {
		opts.status = enums.GenerationStatusPending
	}
	if opts.createdAt.IsZero() {
		opts.createdAt = time.Now().UTC()
	}
	if opts.updatedAt.IsZero() {
		opts.updatedAt = opts.createdAt
	}
	generation := &models.Generation{
		ID:              uuid.New(),
		UserID:          userID,
		ModelImageURL:   "https://cdn.example.com/model.png",
		GarmentImageURL: "https://cdn.example.com/garment.png",
		Category:        enums.GarmentCategoryTop,
		PerformanceMode: enums.PerformanceModeBalanced,
		NumSamples:      1,
		Seed:            42,
		Status:          opts.status,
		IsFavorite:      opts.favorite,
		DeletedAt:       opts.deletedAt,
		CreatedAt:       opts.createdAt,
		UpdatedAt:       opts.updatedAt,
	}
	require.NoError(t, db.Create(generation).Error)
	return generation
}

func TestRepositoryMarkProcessingOnlyFromPending(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{})

	moved, err := repo.MarkProcessing(context.Background(), generation.ID, "task-1")
	require.NoError(t, err)
	assert.True(t, moved)

	reloaded, err := repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.GenerationStatusProcessing, reloaded.Status)
	require.NotNil(t, reloaded.TaskID)
	assert.Equal(t, "task-1", *reloaded.TaskID)

	moved, err = repo.MarkProcessing(context.Background(), generation.ID, "task-2")
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestRepositoryTerminalWritesAreIdempotent(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusProcessing})

	applied, err := repo.MarkCompleted(context.Background(), generation.ID, "https://cdn.example.com/result.png")
	require.NoError(t, err)
	assert.True(t, applied)

	reloaded, err := repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.GenerationStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.ResultImageURL)
	assert.Equal(t, "https://cdn.example.com/result.png", *reloaded.ResultImageURL)
	assert.Nil(t, reloaded.ErrorMessage)

	applied, err = repo.MarkCompleted(context.Background(), generation.ID, "https://cdn.example.com/other.png")
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.MarkFailed(context.Background(), generation.ID, "late failure")
	require.NoError(t, err)
	assert.False(t, applied)

	reloaded, err = repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.GenerationStatusCompleted, reloaded.Status)
	assert.Equal(t, "https://cdn.example.com/result.png", *reloaded.ResultImageURL)
}

func TestRepositoryMarkFailedRecordsReason(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusProcessing})

	applied, err := repo.MarkFailed(context.Background(), generation.ID, "provider exploded")
	require.NoError(t, err)
	assert.True(t, applied)

	reloaded, err := repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.GenerationStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.ErrorMessage)
	assert.Equal(t, "provider exploded", *reloaded.ErrorMessage)
	assert.Nil(t, reloaded.ResultImageURL)
}

func TestRepositoryToggleFavoriteRoundTrips(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	toggled, err := repo.ToggleFavorite(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)

	toggled, err = repo.ToggleFavorite(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsFavorite)

	_, err = repo.ToggleFavorite(context.Background(), uuid.New(), generation.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySoftDeleteRestorePurge(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	deleted, err := repo.SoftDelete(context.Background(), userID, generation.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, deleted)

	// Already trashed, the guard refuses a second delete.
	deleted, err = repo.SoftDelete(context.Background(), userID, generation.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, deleted)

	rows, _, err := repo.List(context.Background(), listGenerationsParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)

	trashed, _, err := repo.List(context.Background(), listGenerationsParams{UserID: userID, Limit: 10, Trashed: true})
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, generation.ID, trashed[0].ID)

	restored, err := repo.Restore(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, restored)

	restored, err = repo.Restore(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.False(t, restored)

	rows, _, err = repo.List(context.Background(), listGenerationsParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	purged, err := repo.Purge(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, purged)

	_, err = repo.FindForUser(context.Background(), userID, generation.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListPaginatesNewestFirst(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 0, 5)
	for i := 0; i < 5; i++ {
		g := seedGeneration(t, db, userID, seedGenerationOpts{
			status:    enums.GenerationStatusCompleted,
			createdAt: base.Add(time.Duration(i) * time.Minute),
		})
		ids = append(ids, g.ID)
	}

	first, cursor, err := repo.List(context.Background(), listGenerationsParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, ids[4], first[0].ID)
	assert.Equal(t, ids[3], first[1].ID)

	second, cursor, err := repo.List(context.Background(), listGenerationsParams{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, ids[2], second[0].ID)
	assert.Equal(t, ids[1], second[1].ID)

	last, cursor, err := repo.List(context.Background(), listGenerationsParams{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Nil(t, cursor)
	assert.Equal(t, ids[0], last[0].ID)
}

func TestRepositoryListFavoritesOnly(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})
	favorite := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted, favorite: true})
	seedGeneration(t, db, uuid.New(), seedGenerationOpts{status: enums.GenerationStatusCompleted, favorite: true})

	rows, _, err := repo.List(context.Background(), listGenerationsParams{UserID: userID, Limit: 10, FavoritesOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, favorite.ID, rows[0].ID)
}

func TestRepositoryPurgeTrashedBefore(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)
	expired := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted, deletedAt: &old})
	kept := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted, deletedAt: &recent})
	live := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	purged, err := repo.PurgeTrashedBefore(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = repo.FindForUser(context.Background(), userID, expired.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindForUser(context.Background(), userID, kept.ID)
	require.NoError(t, err)
	_, err = repo.FindForUser(context.Background(), userID, live.ID)
	require.NoError(t, err)
}

func TestRepositoryListStuckBefore(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	stale := time.Now().UTC().Add(-30 * time.Minute)
	stuck := seedGeneration(t, db, userID, seedGenerationOpts{
		status:    enums.GenerationStatusProcessing,
		createdAt: stale,
		updatedAt: stale,
	})
	seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusProcessing})
	seedGeneration(t, db, userID, seedGenerationOpts{
		status:    enums.GenerationStatusCompleted,
		createdAt: stale,
		updatedAt: stale,
	})

	rows, err := repo.ListStuckBefore(context.Background(), time.Now().UTC().Add(-10*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stuck.ID, rows[0].ID)
}

func TestRepositoryFavoriteAndSoftDeleteBothLand(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	// Favorite first, then trash.
	userID := uuid.New()
	generation := seedGeneration(t, db, userID, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	_, err := repo.ToggleFavorite(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	trashed, err := repo.SoftDelete(context.Background(), userID, generation.ID, now)
	require.NoError(t, err)
	assert.True(t, trashed)

	reloaded, err := repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsFavorite)
	require.NotNil(t, reloaded.DeletedAt)

	// Trash first, then favorite. Trashing must not swallow the flag.
	otherUser := uuid.New()
	other := seedGeneration(t, db, otherUser, seedGenerationOpts{status: enums.GenerationStatusCompleted})

	trashed, err = repo.SoftDelete(context.Background(), otherUser, other.ID, now)
	require.NoError(t, err)
	assert.True(t, trashed)
	_, err = repo.ToggleFavorite(context.Background(), otherUser, other.ID)
	require.NoError(t, err)

	reloaded, err = repo.FindForUser(context.Background(), otherUser, other.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsFavorite)
	require.NotNil(t, reloaded.DeletedAt)
}

func TestRepositoryRowMutationsTouchUpdatedAt(t *testing.T) {
	db := setupGenerationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	stale := time.Now().UTC().Add(-time.Hour)
	generation := seedGeneration(t, db, userID, seedGenerationOpts{
		status:    enums.GenerationStatusCompleted,
		createdAt: stale,
		updatedAt: stale,
	})

	_, err := repo.ToggleFavorite(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	reloaded, err := repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.UpdatedAt.After(stale))

	mark := reloaded.UpdatedAt
	trashed, err := repo.SoftDelete(context.Background(), userID, generation.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, trashed)
	reloaded, err = repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.UpdatedAt.Before(mark))
	require.NotNil(t, reloaded.DeletedAt)

	restored, err := repo.Restore(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, restored)
	reloaded, err = repo.FindForUser(context.Background(), userID, generation.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.UpdatedAt.After(stale))
	assert.Nil(t, reloaded.DeletedAt)
}
