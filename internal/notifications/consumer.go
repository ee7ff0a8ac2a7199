package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
	"github.com/tryonstudio/tryon-backend/pkg/outbox"
	"github.com/tryonstudio/tryon-backend/pkg/outbox/idempotency"
	"github.com/tryonstudio/tryon-backend/pkg/outbox/payloads"
)

const generationNotificationConsumer = "generation-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns run outcomes and credit warnings
// into in-app notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a generation notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !isNotifiableEvent(eventType) {
		c.logg.Debug(logCtx, "skipping event without notification mapping")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, generationNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, generationNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithUserID(logCtx, notification.UserID.String())
	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "notification write failed", err)
		_ = c.idempotency.Delete(ctx, generationNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification created")
	return processResult{ack: true}
}

func isNotifiableEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventGenerationCompleted, enums.EventGenerationFailed, enums.EventCreditsLow:
		return true
	default:
		return false
	}
}

func buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventGenerationCompleted:
		var payload payloads.GenerationCompletedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.UserID == uuid.Nil {
			return nil, fmt.Errorf("user id missing")
		}
		generationID := payload.GenerationID
		return &models.Notification{
			UserID:       payload.UserID,
			GenerationID: &generationID,
			Kind:         enums.NotificationKindGenerationCompleted,
			Body:         "Your try-on is ready.",
		}, nil
	case enums.EventGenerationFailed:
		var payload payloads.GenerationFailedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.UserID == uuid.Nil {
			return nil, fmt.Errorf("user id missing")
		}
		generationID := payload.GenerationID
		body := "Your try-on could not be generated."
		if payload.Reason != "" {
			body = fmt.Sprintf("Your try-on could not be generated: %s", payload.Reason)
		}
		return &models.Notification{
			UserID:       payload.UserID,
			GenerationID: &generationID,
			Kind:         enums.NotificationKindGenerationFailed,
			Body:         body,
		}, nil
	case enums.EventCreditsLow:
		var payload payloads.CreditsLowEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.UserID == uuid.Nil {
			return nil, fmt.Errorf("user id missing")
		}
		return &models.Notification{
			UserID: payload.UserID,
			Kind:   enums.NotificationKindCreditsLow,
			Body:   fmt.Sprintf("You have %d credits left.", payload.CreditsLeft),
		}, nil
	default:
		return nil, fmt.Errorf("event %s has no notification mapping", eventType)
	}
}
