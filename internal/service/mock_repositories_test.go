package service

import (
	"errors"
	"time"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

// MockUserRepository is a mock implementation for tests.
// It implements repository.UserRepositoryInterface.
type MockUserRepository struct {
	users    map[string]*models.User
	failFind bool
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*models.User)}
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) FindByID(id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindActiveIDs(ids []string) ([]string, error) {
	if m.failFind {
		return nil, errors.New("database unavailable")
	}
	var active []string
	for _, id := range ids {
		if user, ok := m.users[id]; ok && user.IsActive {
			active = append(active, id)
		}
	}
	return active, nil
}

// MockBranchRepository implements repository.BranchRepositoryInterface with
// an explicit role-grant table.
type MockBranchRepository struct {
	branches map[string]*models.Branch
	// grants maps role name -> branch id ("" for global) -> user ids
	grants map[string]map[string][]string
	// assignments maps branch id -> explicitly assigned user ids
	assignments map[string][]string
	failRoles   bool
}

func NewMockBranchRepository() *MockBranchRepository {
	return &MockBranchRepository{
		branches:    make(map[string]*models.Branch),
		grants:      make(map[string]map[string][]string),
		assignments: make(map[string][]string),
	}
}

func (m *MockBranchRepository) Grant(userID, roleName, branchID string) {
	if m.grants[roleName] == nil {
		m.grants[roleName] = make(map[string][]string)
	}
	m.grants[roleName][branchID] = append(m.grants[roleName][branchID], userID)
}

func (m *MockBranchRepository) FindByID(id string) (*models.Branch, error) {
	if b, ok := m.branches[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockBranchRepository) FindUserIDsByRoles(roleNames []string, branchID string) ([]string, error) {
	if m.failRoles {
		return nil, errors.New("database unavailable")
	}
	var ids []string
	for _, role := range roleNames {
		byBranch := m.grants[role]
		if byBranch == nil {
			continue
		}
		// Global grants apply to every branch.
		ids = append(ids, byBranch[""]...)
		if branchID != "" {
			ids = append(ids, byBranch[branchID]...)
		}
	}
	return ids, nil
}

func (m *MockBranchRepository) Assign(userID, branchID string) {
	m.assignments[branchID] = append(m.assignments[branchID], userID)
}

func (m *MockBranchRepository) FindAssignedUserIDs(branchID string) ([]string, error) {
	return m.assignments[branchID], nil
}

// MockReportRepository implements repository.ReportRepositoryInterface.
type MockReportRepository struct {
	reports map[string]*models.Report
}

func NewMockReportRepository() *MockReportRepository {
	return &MockReportRepository{reports: make(map[string]*models.Report)}
}

func (m *MockReportRepository) FindByID(id string) (*models.Report, error) {
	if r, ok := m.reports[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// MockNotificationRepository implements
// repository.NotificationRepositoryInterface. failCreateFor injects a write
// failure for specific users to exercise partial-failure paths.
type MockNotificationRepository struct {
	notifications map[string]*models.Notification
	failCreateFor map[string]bool
	// raceOnExists simulates a concurrent dispatch whose row commits
	// between the existence pre-check and the insert: the pre-check
	// misses, the unique index does not.
	raceOnExists bool
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*models.Notification),
		failCreateFor: make(map[string]bool),
	}
}

func (m *MockNotificationRepository) Create(notification *models.Notification) error {
	if m.failCreateFor[notification.UserID] {
		return errors.New("database unavailable")
	}
	if notification.IdempotencyKey != nil {
		for _, existing := range m.notifications {
			if existing.UserID == notification.UserID &&
				existing.IdempotencyKey != nil &&
				*existing.IdempotencyKey == *notification.IdempotencyKey {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	m.notifications[notification.ID] = notification
	return nil
}

func (m *MockNotificationRepository) FindByID(id string) (*models.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockNotificationRepository) ExistsByUserAndKey(userID, idempotencyKey string) (bool, error) {
	if m.raceOnExists {
		return false, nil
	}
	for _, n := range m.notifications {
		if n.UserID == userID && n.IdempotencyKey != nil && *n.IdempotencyKey == idempotencyKey {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockNotificationRepository) ListForUser(userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
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

func (m *MockNotificationRepository) ListSince(userID string, since time.Time, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && n.CreatedAt.After(since) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *MockNotificationRepository) MarkRead(userID, notificationID string) (int64, error) {
	n, ok := m.notifications[notificationID]
	if !ok || n.UserID != userID || n.IsRead {
		return 0, nil
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	return 1, nil
}

func (m *MockNotificationRepository) MarkAllRead(userID string) (int64, error) {
	var affected int64
	now := time.Now()
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			affected++
		}
	}
	return affected, nil
}

func (m *MockNotificationRepository) CountUnread(userID string) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) ForUser(userID string) []*models.Notification {
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// MockDeliveryEventRepository implements
// repository.DeliveryEventRepositoryInterface.
type MockDeliveryEventRepository struct {
	events []*models.DeliveryEvent
}

func NewMockDeliveryEventRepository() *MockDeliveryEventRepository {
	return &MockDeliveryEventRepository{}
}

func (m *MockDeliveryEventRepository) Create(event *models.DeliveryEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *MockDeliveryEventRepository) HasEvent(notificationID string, kind models.DeliveryEventKind) (bool, error) {
	for _, e := range m.events {
		if e.NotificationID == notificationID && e.Event == kind {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDeliveryEventRepository) ListForNotification(notificationID string) ([]models.DeliveryEvent, error) {
	var out []models.DeliveryEvent
	for _, e := range m.events {
		if e.NotificationID == notificationID {
			out = append(out, *e)
		}
	}
	return out, nil
}
