package cache

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types
const (
	UnreadCountTTL = 1 * time.Minute
	UpdatesTTL     = 15 * time.Second
)

// NotificationCache shields the store from the polling fallback endpoint and
// the unread-count badge, both of which are hit far more often than
// notifications change.
type NotificationCache struct {
	redis *RedisCache
}

// NewNotificationCache creates a new notification cache
func NewNotificationCache(redis *RedisCache) *NotificationCache {
	return &NotificationCache{redis: redis}
}

// Keys are grouped per user so invalidation can sweep them with one
// pattern delete.
func unreadCountKey(userID string) string {
	return fmt.Sprintf("notif:user:%s:unread", userID)
}

func updatesKey(userID string) string {
	return fmt.Sprintf("notif:user:%s:updates", userID)
}

func userKeyPattern(userID string) string {
	return fmt.Sprintf("notif:user:%s:*", userID)
}

// GetUnreadCount retrieves a cached unread count
func (nc *NotificationCache) GetUnreadCount(userID string) (int64, bool) {
	if nc == nil || nc.redis == nil {
		return 0, false
	}
	data, err := nc.redis.Get(unreadCountKey(userID))
	if err != nil || data == nil {
		return 0, false
	}
	var count int64
	if err := msgpack.Unmarshal(data, &count); err != nil {
		return 0, false
	}
	return count, true
}

// SetUnreadCount caches an unread count
func (nc *NotificationCache) SetUnreadCount(userID string, count int64) {
	if nc == nil || nc.redis == nil {
		return
	}
	data, err := msgpack.Marshal(count)
	if err != nil {
		return
	}
	_ = nc.redis.Set(unreadCountKey(userID), data, UnreadCountTTL)
}

// GetUpdates retrieves a cached polling response body
func (nc *NotificationCache) GetUpdates(userID string) ([]byte, bool) {
	if nc == nil || nc.redis == nil {
		return nil, false
	}
	data, err := nc.redis.Get(updatesKey(userID))
	if err != nil || data == nil {
		return nil, false
	}
	return data, true
}

// SetUpdates caches a polling response body
func (nc *NotificationCache) SetUpdates(userID string, body []byte) {
	if nc == nil || nc.redis == nil {
		return
	}
	_ = nc.redis.Set(updatesKey(userID), body, UpdatesTTL)
}

// Invalidate drops cached state for a user after their notifications change
func (nc *NotificationCache) Invalidate(userID string) {
	if nc == nil || nc.redis == nil {
		return
	}
	_ = nc.redis.DeletePattern(userKeyPattern(userID))
}
