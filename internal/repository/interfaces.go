package repository

import (
	"time"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id string) (*models.User, error)
	FindActiveIDs(ids []string) ([]string, error)
}

// BranchRepositoryInterface defines the contract for branch/role lookups used
// by targeting
type BranchRepositoryInterface interface {
	FindByID(id string) (*models.Branch, error)
	FindUserIDsByRoles(roleNames []string, branchID string) ([]string, error)
	FindAssignedUserIDs(branchID string) ([]string, error)
}

// ReportRepositoryInterface defines the contract for report record lookups
type ReportRepositoryInterface interface {
	FindByID(id string) (*models.Report, error)
}

// NotificationRepositoryInterface defines the contract for notification
// persistence
type NotificationRepositoryInterface interface {
	Create(notification *models.Notification) error
	FindByID(id string) (*models.Notification, error)
	ExistsByUserAndKey(userID, idempotencyKey string) (bool, error)
	ListForUser(userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	ListSince(userID string, since time.Time, limit int) ([]models.Notification, error)
	MarkRead(userID, notificationID string) (int64, error)
	MarkAllRead(userID string) (int64, error)
	CountUnread(userID string) (int64, error)
}

// DeliveryEventRepositoryInterface defines the contract for the append-only
// delivery event log
type DeliveryEventRepositoryInterface interface {
	Create(event *models.DeliveryEvent) error
	HasEvent(notificationID string, kind models.DeliveryEventKind) (bool, error)
	ListForNotification(notificationID string) ([]models.DeliveryEvent, error)
}
