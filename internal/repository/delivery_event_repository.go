package repository

import (
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

type DeliveryEventRepository struct {
	db *gorm.DB
}

func NewDeliveryEventRepository(db *gorm.DB) *DeliveryEventRepository {
	return &DeliveryEventRepository{db: db}
}

func (r *DeliveryEventRepository) Create(event *models.DeliveryEvent) error {
	return r.db.Create(event).Error
}

// HasEvent reports whether the notification already has a lifecycle event of
// the given kind. Used to detect client reports arriving before SENT.
func (r *DeliveryEventRepository) HasEvent(notificationID string, kind models.DeliveryEventKind) (bool, error) {
	var count int64
	err := r.db.Model(&models.DeliveryEvent{}).
		Where("notification_id = ? AND event = ?", notificationID, kind).
		Count(&count).Error
	return count > 0, err
}

func (r *DeliveryEventRepository) ListForNotification(notificationID string) ([]models.DeliveryEvent, error) {
	var events []models.DeliveryEvent
	err := r.db.Where("notification_id = ?", notificationID).
		Order("timestamp ASC").
		Find(&events).Error
	return events, err
}
