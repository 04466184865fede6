package stream

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/cache"
)

// ErrTooManyConnections is returned by Add when a user already holds the
// per-user connection cap; existing connections are never evicted to make
// room.
var ErrTooManyConnections = errors.New("stream: too many connections for user")

// Config tunes a Registry. Zero values fall back to defaults.
type Config struct {
	MaxPerUser     int           // per-user connection cap (default 5)
	HeartbeatEvery time.Duration // named ping interval (default 30s)
	IdleTimeout    time.Duration // stale connection reap threshold (default 5m)
	SweepEvery     time.Duration // reap scan interval (default 1m)
	PresenceEvery  time.Duration // instance stats publish interval (default 30s)
	SendBuffer     int           // per-connection frame queue (default 64)
}

func (c *Config) norm() {
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = 5
	}
	if c.HeartbeatEvery <= 0 {
		c.HeartbeatEvery = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = time.Minute
	}
	if c.PresenceEvery <= 0 {
		c.PresenceEvery = 30 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
}

// SendResult reports a per-user fan-out: how many connections accepted the
// frame and how many failed (and were removed).
type SendResult struct {
	Sent   int `json:"sent"`
	Errors int `json:"errors"`
}

// Stats is the local connection snapshot for the admin surface.
type Stats struct {
	Connections int            `json:"connections"`
	UniqueUsers int            `json:"unique_users"`
	PerUser     map[string]int `json:"per_user"`
}

// Registry owns every live stream connection of this process instance. All
// map mutation happens under one RWMutex; transports never touch the maps.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Connection
	byUser map[string]map[string]*Connection

	conf       Config
	instanceID string
	presence   *cache.PresenceCache

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry and starts its heartbeat, reaper and
// presence goroutines. presence may be nil (single instance, tests).
func NewRegistry(instanceID string, presence *cache.PresenceCache, conf Config) *Registry {
	conf.norm()
	r := &Registry{
		byConn:     make(map[string]*Connection),
		byUser:     make(map[string]map[string]*Connection),
		conf:       conf,
		instanceID: instanceID,
		presence:   presence,
		stopCh:     make(chan struct{}),
	}
	go r.heartbeatLoop()
	go r.sweeper()
	go r.presenceLoop()
	return r
}

func (r *Registry) InstanceID() string {
	return r.instanceID
}

// Add registers a new connection for userID. Returns ErrTooManyConnections
// when the per-user cap is reached.
func (r *Registry) Add(userID string, metadata map[string]string) (*Connection, error) {
	conn := &Connection{
		ID:           uuid.NewString(),
		UserID:       userID,
		InstanceID:   r.instanceID,
		OpenedAt:     time.Now(),
		Metadata:     metadata,
		frames:       make(chan Frame, r.conf.SendBuffer),
		done:         make(chan struct{}),
		lastActivity: time.Now(),
	}

	r.mu.Lock()
	if len(r.byUser[userID]) >= r.conf.MaxPerUser {
		r.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]*Connection)
	}
	r.byUser[userID][conn.ID] = conn
	r.byConn[conn.ID] = conn
	total := len(r.byConn)
	r.mu.Unlock()

	if err := r.presence.SetUserOnline(userID); err != nil {
		log.Printf("Failed to mark user %s online: %v", userID, err)
	}
	log.Printf("Connection %s opened for user %s (total: %d)", conn.ID, userID, total)
	return conn, nil
}

// Remove drops a connection and signals its transport goroutine. Removing an
// unknown or already-removed connection is a no-op.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	conn, exists := r.byConn[connID]
	if !exists {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, connID)
	if userConns := r.byUser[conn.UserID]; userConns != nil {
		delete(userConns, connID)
		if len(userConns) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
	lastForUser := r.byUser[conn.UserID] == nil
	total := len(r.byConn)
	r.mu.Unlock()

	conn.close()
	if lastForUser {
		if err := r.presence.SetUserOffline(conn.UserID); err != nil {
			log.Printf("Failed to mark user %s offline: %v", conn.UserID, err)
		}
	}
	log.Printf("Connection %s closed for user %s (total: %d)", connID, conn.UserID, total)
}

// Touch records transport activity (a successful write) for idle tracking.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	if conn, exists := r.byConn[connID]; exists {
		conn.lastActivity = time.Now()
	}
	r.mu.Unlock()
}

// SendToUser fans one event out to every connection the user holds. A failed
// connection is removed but never aborts delivery to the user's other
// connections.
func (r *Registry) SendToUser(userID, event string, payload interface{}) SendResult {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling %s event for user %s: %v", event, userID, err)
		return SendResult{}
	}

	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.byUser[userID]))
	for _, conn := range r.byUser[userID] {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	var res SendResult
	for _, conn := range conns {
		if err := conn.push(Frame{Event: event, Data: data}); err != nil {
			res.Errors++
			r.Remove(conn.ID)
			continue
		}
		res.Sent++
	}
	return res
}

// Broadcast fans one event out to every local connection and returns the
// number of connections that accepted it.
func (r *Registry) Broadcast(event string, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling broadcast %s event: %v", event, err)
		return 0
	}

	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.byConn))
	for _, conn := range r.byConn {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	sent := 0
	for _, conn := range conns {
		if err := conn.push(Frame{Event: event, Data: data}); err != nil {
			r.Remove(conn.ID)
			continue
		}
		sent++
	}
	return sent
}

// Stats returns the local connection snapshot.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	perUser := make(map[string]int, len(r.byUser))
	for userID, conns := range r.byUser {
		perUser[userID] = len(conns)
	}
	return Stats{
		Connections: len(r.byConn),
		UniqueUsers: len(r.byUser),
		PerUser:     perUser,
	}
}

// Close stops the background loops and drops every connection.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.byConn))
	for _, conn := range r.byConn {
		conns = append(conns, conn)
	}
	r.byConn = make(map[string]*Connection)
	r.byUser = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

// heartbeatLoop pushes a named ping on every open connection so intermediary
// proxies keep idle streams alive; a connection that cannot take the ping is
// removed.
func (r *Registry) heartbeatLoop() {
	ticker := time.NewTicker(r.conf.HeartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.mu.RLock()
			conns := make([]*Connection, 0, len(r.byConn))
			for _, conn := range r.byConn {
				conns = append(conns, conn)
			}
			r.mu.RUnlock()

			for _, conn := range conns {
				data, err := json.Marshal(NewPingPayload(conn.ID))
				if err != nil {
					continue
				}
				if err := conn.push(Frame{Event: EventPing, Data: data}); err != nil {
					log.Printf("Heartbeat failed for connection %s: %v", conn.ID, err)
					r.Remove(conn.ID)
				}
			}
		}
	}
}

// sweeper reaps connections whose transport stopped writing.
func (r *Registry) sweeper() {
	ticker := time.NewTicker(r.conf.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.conf.IdleTimeout)

			r.mu.RLock()
			stale := make([]string, 0)
			for id, conn := range r.byConn {
				if conn.lastActivity.Before(cutoff) {
					stale = append(stale, id)
				}
			}
			r.mu.RUnlock()

			for _, id := range stale {
				log.Printf("Removing idle connection %s", id)
				r.Remove(id)
			}
		}
	}
}

// presenceLoop mirrors local counts into Redis and refreshes the online TTL
// of connected users.
func (r *Registry) presenceLoop() {
	if r.presence == nil {
		return
	}
	ticker := time.NewTicker(r.conf.PresenceEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			stats := r.Stats()
			if err := r.presence.PublishInstanceStats(cache.InstanceStats{
				InstanceID:  r.instanceID,
				Connections: stats.Connections,
				UniqueUsers: stats.UniqueUsers,
				UpdatedAt:   time.Now(),
			}); err != nil {
				log.Printf("Failed to publish instance stats: %v", err)
				continue
			}
			for userID := range stats.PerUser {
				if err := r.presence.SetUserOnline(userID); err != nil {
					log.Printf("Failed to refresh online state for user %s: %v", userID, err)
				}
			}
		}
	}
}
