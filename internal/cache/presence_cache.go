package cache

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// InstanceStatsTTL must exceed the registry's publish interval so a
	// healthy instance never expires; a crashed instance ages out on its own.
	InstanceStatsTTL = 90 * time.Second
	OnlineUserTTL    = 90 * time.Second
)

// InstanceStats is the per-process connection snapshot each instance mirrors
// into Redis so the admin endpoint can aggregate a global view.
type InstanceStats struct {
	InstanceID  string    `msgpack:"instance_id"`
	Connections int       `msgpack:"connections"`
	UniqueUsers int       `msgpack:"unique_users"`
	UpdatedAt   time.Time `msgpack:"updated_at"`
}

// PresenceCache mirrors per-instance connection state into Redis.
type PresenceCache struct {
	redis *RedisCache
}

// NewPresenceCache creates a new presence cache
func NewPresenceCache(redis *RedisCache) *PresenceCache {
	return &PresenceCache{redis: redis}
}

func instanceKey(instanceID string) string {
	return "presence:instance:" + instanceID
}

// PublishInstanceStats stores this instance's connection snapshot with a TTL.
func (pc *PresenceCache) PublishInstanceStats(stats InstanceStats) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(stats)
	if err != nil {
		return err
	}
	return pc.redis.Set(instanceKey(stats.InstanceID), data, InstanceStatsTTL)
}

// GlobalStats aggregates the snapshots of every live instance.
func (pc *PresenceCache) GlobalStats() ([]InstanceStats, error) {
	if pc == nil || pc.redis == nil {
		return nil, nil
	}
	keys, err := pc.redis.ScanKeys("presence:instance:*")
	if err != nil {
		return nil, err
	}
	out := make([]InstanceStats, 0, len(keys))
	for _, key := range keys {
		data, err := pc.redis.Get(key)
		if err != nil || data == nil {
			continue // expired between scan and read
		}
		var stats InstanceStats
		if err := msgpack.Unmarshal(data, &stats); err != nil {
			continue
		}
		out = append(out, stats)
	}
	return out, nil
}

// SetUserOnline marks a user as holding at least one live connection.
func (pc *PresenceCache) SetUserOnline(userID string) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	if err := pc.redis.SetAdd("online:users", userID); err != nil {
		return err
	}
	return pc.redis.Set(fmt.Sprintf("online:%s", userID), []byte("1"), OnlineUserTTL)
}

// SetUserOffline removes a user from the online set.
func (pc *PresenceCache) SetUserOffline(userID string) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	if err := pc.redis.SetRemove("online:users", userID); err != nil {
		return err
	}
	return pc.redis.Delete(fmt.Sprintf("online:%s", userID))
}

// OnlineUserCount returns the number of distinct users holding a live
// connection on any instance.
func (pc *PresenceCache) OnlineUserCount() (int64, error) {
	if pc == nil || pc.redis == nil {
		return 0, nil
	}
	return pc.redis.SetCard("online:users")
}

// IsUserOnline checks for a live connection on any instance.
func (pc *PresenceCache) IsUserOnline(userID string) bool {
	if pc == nil || pc.redis == nil {
		return false
	}
	return pc.redis.Exists(fmt.Sprintf("online:%s", userID))
}
