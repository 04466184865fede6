package repository

import (
	"errors"
	"time"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *NotificationRepository) FindByID(id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.Where("id = ?", id).First(&notification).Error
	return &notification, err
}

// ExistsByUserAndKey reports whether a notification with the given
// idempotency key was already created for the user.
func (r *NotificationRepository) ExistsByUserAndKey(userID, idempotencyKey string) (bool, error) {
	var notification models.Notification
	err := r.db.Select("id").
		Where("user_id = ? AND idempotency_key = ?", userID, idempotencyKey).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *NotificationRepository) ListForUser(userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	q := r.db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

// ListSince returns notifications created after the given time, newest last,
// for the polling fallback endpoint.
func (r *NotificationRepository) ListSince(userID string, since time.Time, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ? AND created_at > ?", userID, since).
		Order("created_at ASC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// MarkRead flips the read state of one notification owned by userID.
// Returns the number of rows affected (0 when already read or not owned).
func (r *NotificationRepository) MarkRead(userID, notificationID string) (int64, error) {
	now := time.Now()
	res := r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) MarkAllRead(userID string) (int64, error) {
	now := time.Now()
	res := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) CountUnread(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
