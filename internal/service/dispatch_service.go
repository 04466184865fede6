package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/bus"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/cache"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/repository"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/stream"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrUnknownEventType = errors.New("unknown event type")

// DispatchInput is one dispatch request from a producer.
type DispatchInput struct {
	Type           string                 `json:"type"`
	Data           map[string]interface{} `json:"data"`
	UserIDs        []string               `json:"userIds,omitempty"`
	Priority       int                    `json:"priority,omitempty"`
	IdempotencyKey string                 `json:"idempotencyKey,omitempty"`
}

// DispatchResult reports what a dispatch produced. Skipped counts
// idempotency suppressions, Failed counts recipients whose row could not
// be written.
type DispatchResult struct {
	BatchID string `json:"batchId"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// DispatchService turns producer events into per-recipient notifications,
// delivers them to local streams immediately and hands them to the worker
// for cross-instance fan-out.
type DispatchService struct {
	repo      repository.NotificationRepositoryInterface
	targeting *TargetingService
	registry  *stream.Registry
	worker    *bus.Worker
	cache     *cache.NotificationCache
}

func NewDispatchService(
	repo repository.NotificationRepositoryInterface,
	targeting *TargetingService,
	registry *stream.Registry,
	worker *bus.Worker,
	notifCache *cache.NotificationCache,
) *DispatchService {
	return &DispatchService{
		repo:      repo,
		targeting: targeting,
		registry:  registry,
		worker:    worker,
		cache:     notifCache,
	}
}

// Dispatch resolves recipients, persists one notification per recipient
// (unless the type is broadcast-only) and queues delivery intents. A
// failure for one recipient never aborts the others.
func (s *DispatchService) Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error) {
	if input.Type == "" {
		return nil, ErrUnknownEventType
	}

	result := &DispatchResult{BatchID: uuid.New().String()}

	if models.IsBroadcastType(input.Type) {
		return result, s.dispatchBroadcast(input, result)
	}

	recipients := input.UserIDs
	if len(recipients) == 0 {
		resolved, err := s.targeting.Resolve(ctx, input.Type, ParseEventContext(input.Data))
		if err != nil {
			return nil, err
		}
		recipients = resolved
	}
	if len(recipients) == 0 {
		log.Printf("Dispatch: %s resolved no recipients, batch %s", input.Type, result.BatchID)
		return result, nil
	}

	content := RenderContent(input.Type, input.Data)
	content.Body = validation.TrimAndLimit(content.Body, validation.MaxNotificationBodyLength())
	payload := marshalData(input.Data)

	for _, userID := range recipients {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		notification, err := s.createFor(userID, input, content, payload, result.BatchID)
		if err != nil {
			if errors.Is(err, errIdempotentDuplicate) {
				result.Skipped++
				continue
			}
			log.Printf("Dispatch: persisting notification for user %s failed: %v", userID, err)
			result.Failed++
			continue
		}
		result.Created++
		s.deliver(notification, input.Priority)
	}

	log.Printf("Dispatch: %s batch %s created=%d skipped=%d failed=%d",
		input.Type, result.BatchID, result.Created, result.Skipped, result.Failed)
	return result, nil
}

var errIdempotentDuplicate = errors.New("duplicate notification for idempotency key")

func (s *DispatchService) createFor(userID string, input DispatchInput, content RenderedContent, payload datatypes.JSON, batchID string) (*models.Notification, error) {
	if input.IdempotencyKey != "" {
		exists, err := s.repo.ExistsByUserAndKey(userID, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errIdempotentDuplicate
		}
	}

	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     content.Title,
		Body:      content.Body,
		Type:      input.Type,
		Data:      payload,
		ActionURL: content.ActionURL,
		BatchID:   batchID,
		CreatedAt: time.Now(),
	}
	if input.IdempotencyKey != "" {
		key := input.IdempotencyKey
		notification.IdempotencyKey = &key
	}

	if err := s.repo.Create(notification); err != nil {
		// A concurrent dispatch with the same key hits the unique index;
		// that is a suppression, not a failure.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errIdempotentDuplicate
		}
		return nil, err
	}
	return notification, nil
}

// deliver pushes to connections on this instance first, so same-instance
// delivery never depends on the bus, then queues the intent for everyone
// else.
func (s *DispatchService) deliver(notification *models.Notification, priority int) {
	wire, err := json.Marshal(notification.ToResponse())
	if err != nil {
		log.Printf("Dispatch: encoding notification %s failed: %v", notification.ID, err)
		return
	}

	if s.registry != nil {
		s.registry.SendToUser(notification.UserID, stream.EventNotification, json.RawMessage(wire))
	}
	if s.cache != nil {
		s.cache.Invalidate(notification.UserID)
	}
	if s.worker != nil {
		s.worker.Enqueue(bus.DeliveryIntent{
			EventID:        uuid.New().String(),
			NotificationID: notification.ID,
			TargetUserID:   notification.UserID,
			EventType:      notification.Type,
			StreamEvent:    stream.EventNotification,
			Title:          notification.Title,
			Body:           notification.Body,
			Payload:        wire,
			Priority:       priority,
			Origin:         s.originInstance(),
		})
	}
}

func (s *DispatchService) dispatchBroadcast(input DispatchInput, result *DispatchResult) error {
	content := RenderContent(input.Type, input.Data)
	streamEvent := stream.EventSystemAlert
	if input.Type == models.EventDashboardUpdate {
		streamEvent = stream.EventDashboardUpdate
	}

	body := map[string]interface{}{
		"type":      input.Type,
		"title":     content.Title,
		"message":   content.Body,
		"data":      input.Data,
		"timestamp": time.Now().UnixMilli(),
	}
	wire, err := json.Marshal(body)
	if err != nil {
		return err
	}

	if s.registry != nil {
		s.registry.Broadcast(streamEvent, json.RawMessage(wire))
	}
	if s.worker != nil {
		s.worker.Enqueue(bus.DeliveryIntent{
			EventID:     uuid.New().String(),
			Broadcast:   true,
			EventType:   input.Type,
			StreamEvent: streamEvent,
			Title:       content.Title,
			Body:        content.Body,
			Payload:     wire,
			Priority:    input.Priority,
			Origin:      s.originInstance(),
		})
	}
	log.Printf("Dispatch: broadcast %s batch %s", input.Type, result.BatchID)
	return nil
}

func (s *DispatchService) originInstance() string {
	if s.registry == nil {
		return ""
	}
	return s.registry.InstanceID()
}

func marshalData(data map[string]interface{}) datatypes.JSON {
	if len(data) == 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("Dispatch: encoding event data failed: %v", err)
		return nil
	}
	return datatypes.JSON(raw)
}
