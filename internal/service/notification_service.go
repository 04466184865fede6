package service

import (
	"time"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/cache"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/repository"
)

const defaultListLimit = 50

// NotificationService serves the read side: inbox listing, read state and
// the unread badge.
type NotificationService struct {
	repo     repository.NotificationRepositoryInterface
	tracking *TrackingService
	cache    *cache.NotificationCache
}

func NewNotificationService(
	repo repository.NotificationRepositoryInterface,
	tracking *TrackingService,
	notifCache *cache.NotificationCache,
) *NotificationService {
	return &NotificationService{repo: repo, tracking: tracking, cache: notifCache}
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(userID string, unreadOnly bool, limit int) ([]models.NotificationResponse, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	notifications, err := s.repo.ListForUser(userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]models.NotificationResponse, len(notifications))
	for i := range notifications {
		responses[i] = notifications[i].ToResponse()
	}
	return responses, nil
}

// Since returns notifications created after the given time, for clients on
// the polling fallback.
func (s *NotificationService) Since(userID string, since time.Time, limit int) ([]models.NotificationResponse, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	notifications, err := s.repo.ListSince(userID, since, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]models.NotificationResponse, len(notifications))
	for i := range notifications {
		responses[i] = notifications[i].ToResponse()
	}
	return responses, nil
}

// CachedUpdates returns a previously cached polling response body.
func (s *NotificationService) CachedUpdates(userID string) ([]byte, bool) {
	return s.cache.GetUpdates(userID)
}

// CacheUpdates stores a polling response body for the cache window.
func (s *NotificationService) CacheUpdates(userID string, body []byte) {
	s.cache.SetUpdates(userID, body)
}

// MarkRead marks one notification read for its owner. Returns false when
// no row matched, i.e. the notification does not exist, belongs to someone
// else, or was already read.
func (s *NotificationService) MarkRead(userID, notificationID string) (bool, error) {
	affected, err := s.repo.MarkRead(userID, notificationID)
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	s.cache.Invalidate(userID)
	if s.tracking != nil {
		s.tracking.RecordRead(notificationID, userID)
	}
	return true, nil
}

// MarkAllRead marks every unread notification of the user read and returns
// how many were affected.
func (s *NotificationService) MarkAllRead(userID string) (int64, error) {
	affected, err := s.repo.MarkAllRead(userID)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.cache.Invalidate(userID)
	}
	return affected, nil
}

// UnreadCount returns the unread badge count, served from cache when fresh.
func (s *NotificationService) UnreadCount(userID string) (int64, error) {
	if count, ok := s.cache.GetUnreadCount(userID); ok {
		return count, nil
	}
	count, err := s.repo.CountUnread(userID)
	if err != nil {
		return 0, err
	}
	s.cache.SetUnreadCount(userID, count)
	return count, nil
}
