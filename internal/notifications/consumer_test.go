package notifications

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tryonstudio/tryon-backend/pkg/enums"
	"github.com/tryonstudio/tryon-backend/pkg/outbox/payloads"
)

func mustMarshal(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func TestBuildNotificationCompleted(t *testing.T) {
	userID := uuid.New()
	generationID := uuid.New()
	data := mustMarshal(t, payloads.GenerationCompletedEvent{
		GenerationID:   generationID,
		UserID:         userID,
		ResultImageURL: "https://cdn.example.com/result.png",
		CreditsLeft:    5,
	})

	notification, err := buildNotification(enums.EventGenerationCompleted, data)
	require.NoError(t, err)
	assert.Equal(t, userID, notification.UserID)
	require.NotNil(t, notification.GenerationID)
	assert.Equal(t, generationID, *notification.GenerationID)
	assert.Equal(t, enums.NotificationKindGenerationCompleted, notification.Kind)
	assert.Equal(t, "Your try-on is ready.", notification.Body)
}

func TestBuildNotificationFailedCarriesReason(t *testing.T) {
	data := mustMarshal(t, payloads.GenerationFailedEvent{
		GenerationID: uuid.New(),
		UserID:       uuid.New(),
		Reason:       "pose could not be detected",
	})

	notification, err := buildNotification(enums.EventGenerationFailed, data)
	require.NoError(t, err)
	assert.Equal(t, enums.NotificationKindGenerationFailed, notification.Kind)
	assert.Equal(t, "Your try-on could not be generated: pose could not be detected", notification.Body)
}

func TestBuildNotificationCreditsLow(t *testing.T) {
	data := mustMarshal(t, payloads.CreditsLowEvent{UserID: uuid.New(), CreditsLeft: 2})

	notification, err := buildNotification(enums.EventCreditsLow, data)
	require.NoError(t, err)
	assert.Equal(t, enums.NotificationKindCreditsLow, notification.Kind)
	assert.Equal(t, "You have 2 credits left.", notification.Body)
	assert.Nil(t, notification.GenerationID)
}

func TestBuildNotificationRejectsMissingUser(t *testing.T) {
	data := mustMarshal(t, payloads.GenerationCompletedEvent{GenerationID: uuid.New()})

	_, err := buildNotification(enums.EventGenerationCompleted, data)
	assert.Error(t, err)
}

func TestIsNotifiableEvent(t *testing.T) {
	assert.True(t, isNotifiableEvent(enums.EventGenerationCompleted))
	assert.True(t, isNotifiableEvent(enums.EventGenerationFailed))
	assert.True(t, isNotifiableEvent(enums.EventCreditsLow))
	assert.False(t, isNotifiableEvent(enums.EventGenerationStarted))
	assert.False(t, isNotifiableEvent(enums.EventGenerationCanceled))
}
