package handlers

import (
	"time"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

// mockNotificationRepo implements
// repository.NotificationRepositoryInterface for handler tests.
type mockNotificationRepo struct {
	notifications map[string]*models.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*models.Notification)}
}

func (m *mockNotificationRepo) Create(notification *models.Notification) error {
	m.notifications[notification.ID] = notification
	return nil
}

func (m *mockNotificationRepo) FindByID(id string) (*models.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ExistsByUserAndKey(userID, idempotencyKey string) (bool, error) {
	for _, n := range m.notifications {
		if n.UserID == userID && n.IdempotencyKey != nil && *n.IdempotencyKey == idempotencyKey {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) ListForUser(userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) ListSince(userID string, since time.Time, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && n.CreatedAt.After(since) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(userID, notificationID string) (int64, error) {
	n, ok := m.notifications[notificationID]
	if !ok || n.UserID != userID || n.IsRead {
		return 0, nil
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	return 1, nil
}

func (m *mockNotificationRepo) MarkAllRead(userID string) (int64, error) {
	var count int64
	now := time.Now()
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) CountUnread(userID string) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// mockDeliveryEventRepo implements
// repository.DeliveryEventRepositoryInterface for handler tests.
type mockDeliveryEventRepo struct {
	events []models.DeliveryEvent
}

func newMockDeliveryEventRepo() *mockDeliveryEventRepo {
	return &mockDeliveryEventRepo{}
}

func (m *mockDeliveryEventRepo) Create(event *models.DeliveryEvent) error {
	m.events = append(m.events, *event)
	return nil
}

func (m *mockDeliveryEventRepo) HasEvent(notificationID string, kind models.DeliveryEventKind) (bool, error) {
	for _, e := range m.events {
		if e.NotificationID == notificationID && e.Event == kind {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDeliveryEventRepo) ListForNotification(notificationID string) ([]models.DeliveryEvent, error) {
	var out []models.DeliveryEvent
	for _, e := range m.events {
		if e.NotificationID == notificationID {
			out = append(out, e)
		}
	}
	return out, nil
}
