package service

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidDeliveryEvent = errors.New("invalid delivery event kind")
)

// TrackingService appends lifecycle events to the delivery event log.
type TrackingService struct {
	notifRepo repository.NotificationRepositoryInterface
	eventRepo repository.DeliveryEventRepositoryInterface
}

func NewTrackingService(
	notifRepo repository.NotificationRepositoryInterface,
	eventRepo repository.DeliveryEventRepositoryInterface,
) *TrackingService {
	return &TrackingService{notifRepo: notifRepo, eventRepo: eventRepo}
}

// Record appends one event. The referenced notification must exist and the
// kind must be known. Client-reported events that arrive before a SENT is
// on record are kept but flagged out of order.
func (s *TrackingService) Record(notificationID string, kind models.DeliveryEventKind, metadata map[string]interface{}) (*models.DeliveryEvent, error) {
	if !models.ValidDeliveryEventKind(kind) {
		return nil, ErrInvalidDeliveryEvent
	}
	if _, err := s.notifRepo.FindByID(notificationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	outOfOrder := false
	switch kind {
	case models.DeliveryDelivered, models.DeliveryClicked, models.DeliveryClosed:
		sent, err := s.eventRepo.HasEvent(notificationID, models.DeliverySent)
		if err != nil {
			log.Printf("Tracking: SENT lookup for %s failed: %v", notificationID, err)
		} else if !sent {
			outOfOrder = true
		}
	}

	event := &models.DeliveryEvent{
		ID:             uuid.New().String(),
		NotificationID: notificationID,
		Event:          kind,
		Metadata:       marshalMetadata(metadata),
		OutOfOrder:     outOfOrder,
		Timestamp:      time.Now(),
	}
	if err := s.eventRepo.Create(event); err != nil {
		return nil, err
	}
	return event, nil
}

// RecordRead appends a READ event when a user marks a notification read.
// Failures are logged, not surfaced; the read itself already succeeded.
func (s *TrackingService) RecordRead(notificationID, userID string) {
	if _, err := s.Record(notificationID, models.DeliveryRead, map[string]interface{}{"userId": userID}); err != nil {
		log.Printf("Tracking: recording READ for %s failed: %v", notificationID, err)
	}
}

// History returns the full event log of one notification, oldest first.
func (s *TrackingService) History(notificationID string) ([]models.DeliveryEvent, error) {
	return s.eventRepo.ListForNotification(notificationID)
}

func marshalMetadata(metadata map[string]interface{}) datatypes.JSON {
	if len(metadata) == 0 {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		log.Printf("Tracking: encoding metadata failed: %v", err)
		return nil
	}
	return datatypes.JSON(raw)
}
