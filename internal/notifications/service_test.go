package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	paginationpkg "github.com/tryonstudio/tryon-backend/pkg/pagination"
)

type fakeRepository struct {
	listRows   []models.Notification
	listCursor *paginationpkg.Cursor
	listErr    error
	markResult notificationMarkResult
	markErr    error
	markAll    int64
	markAllErr error
	unread     int64
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	return f.listRows, f.listCursor, nil
}

func (f *fakeRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.unread, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	return f.markResult, f.markErr
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return f.markAll, f.markAllErr
}

func (f *fakeRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func TestService_ListNotifications(t *testing.T) {
	createdAt := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	generationID := uuid.New()
	repo := &fakeRepository{
		listRows: []models.Notification{{
			ID:           uuid.New(),
			UserID:       uuid.New(),
			GenerationID: &generationID,
			Kind:         enums.NotificationKindGenerationCompleted,
			Body:         "Your try-on is ready.",
			CreatedAt:    createdAt,
		}},
		listCursor: &paginationpkg.Cursor{CreatedAt: createdAt, ID: uuid.New()},
	}
	svc := newServiceWithRepo(t, repo)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, enums.NotificationKindGenerationCompleted, result.Items[0].Kind)
	assert.Equal(t, &generationID, result.Items[0].GenerationID)
	assert.NotEmpty(t, result.Cursor)
}

func TestService_ListNotificationsInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 10, Cursor: "garbage"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestService_MarkRead(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{markResult: notificationMarkResult{Updated: true, Found: true}})

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.NoError(t, err)
}

func TestService_MarkReadNotFound(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{markResult: notificationMarkResult{}})

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestService_MarkAllRead(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{markAll: 4})

	updated, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(4), updated)
}

func TestService_MarkAllReadError(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{markAllErr: errors.New("boom")})

	_, err := svc.MarkAllRead(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
}

func TestService_UnreadCount(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{unread: 7})

	count, err := svc.UnreadCount(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}
