package stream

import (
	"errors"
	"testing"
	"time"
)

func newTestRegistry(conf Config) *Registry {
	// Long intervals keep the background loops quiet during tests.
	if conf.HeartbeatEvery == 0 {
		conf.HeartbeatEvery = time.Hour
	}
	if conf.SweepEvery == 0 {
		conf.SweepEvery = time.Hour
	}
	if conf.PresenceEvery == 0 {
		conf.PresenceEvery = time.Hour
	}
	return NewRegistry("test-instance", nil, conf)
}

func TestSendToUserFansOutToAllConnections(t *testing.T) {
	r := newTestRegistry(Config{})
	defer r.Close()

	conn1, err := r.Add("u1", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	conn2, err := r.Add("u1", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	res := r.SendToUser("u1", EventNotification, map[string]string{"id": "n1"})
	if res.Sent != 2 || res.Errors != 0 {
		t.Fatalf("sent=%d errors=%d, want 2/0", res.Sent, res.Errors)
	}

	for _, conn := range []*Connection{conn1, conn2} {
		select {
		case frame := <-conn.Frames():
			if frame.Event != EventNotification {
				t.Errorf("got event %s, want %s", frame.Event, EventNotification)
			}
		default:
			t.Errorf("connection %s did not receive the frame", conn.ID)
		}
	}
}

func TestSendToUserSurvivesOneDeadConnection(t *testing.T) {
	r := newTestRegistry(Config{SendBuffer: 1})
	defer r.Close()

	stuck, err := r.Add("u1", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	healthy, err := r.Add("u1", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Fill the stuck connection's buffer so the next push fails.
	r.SendToUser("u1", EventPing, "fill")
	drain(healthy)

	res := r.SendToUser("u1", EventNotification, map[string]string{"id": "n1"})
	if res.Sent != 1 || res.Errors != 1 {
		t.Fatalf("sent=%d errors=%d, want 1/1", res.Sent, res.Errors)
	}

	// The stuck connection must be gone, the healthy one still registered.
	stats := r.Stats()
	if stats.Connections != 1 {
		t.Errorf("expected 1 remaining connection, got %d", stats.Connections)
	}
	select {
	case <-stuck.Done():
	default:
		t.Error("dead connection was not closed")
	}
}

func TestAddEnforcesPerUserCap(t *testing.T) {
	r := newTestRegistry(Config{MaxPerUser: 2})
	defer r.Close()

	for i := 0; i < 2; i++ {
		if _, err := r.Add("u1", nil); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
	}
	if _, err := r.Add("u1", nil); !errors.Is(err, ErrTooManyConnections) {
		t.Errorf("expected ErrTooManyConnections, got %v", err)
	}
	// Other users are unaffected by u1's cap.
	if _, err := r.Add("u2", nil); err != nil {
		t.Errorf("other user's Add failed: %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := newTestRegistry(Config{})
	defer r.Close()

	conn, err := r.Add("u1", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	r.Remove(conn.ID)
	r.Remove(conn.ID)
	r.Remove("never-existed")

	if stats := r.Stats(); stats.Connections != 0 || stats.UniqueUsers != 0 {
		t.Errorf("expected empty registry, got %+v", stats)
	}
}

func TestBroadcastReachesEveryUser(t *testing.T) {
	r := newTestRegistry(Config{})
	defer r.Close()

	conns := make([]*Connection, 0, 3)
	for _, user := range []string{"u1", "u2", "u3"} {
		conn, err := r.Add(user, nil)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		conns = append(conns, conn)
	}

	sent := r.Broadcast(EventSystemAlert, map[string]string{"message": "maintenance"})
	if sent != 3 {
		t.Fatalf("expected 3 deliveries, got %d", sent)
	}
	for _, conn := range conns {
		select {
		case frame := <-conn.Frames():
			if frame.Event != EventSystemAlert {
				t.Errorf("got event %s, want %s", frame.Event, EventSystemAlert)
			}
		default:
			t.Errorf("connection %s missed the broadcast", conn.ID)
		}
	}
}

func TestStatsCountsPerUser(t *testing.T) {
	r := newTestRegistry(Config{})
	defer r.Close()

	if _, err := r.Add("u1", nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.Add("u1", nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.Add("u2", nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	stats := r.Stats()
	if stats.Connections != 3 || stats.UniqueUsers != 2 {
		t.Errorf("connections=%d users=%d, want 3/2", stats.Connections, stats.UniqueUsers)
	}
	if stats.PerUser["u1"] != 2 || stats.PerUser["u2"] != 1 {
		t.Errorf("unexpected per-user counts: %v", stats.PerUser)
	}
}

func drain(c *Connection) {
	for {
		select {
		case <-c.Frames():
		default:
			return
		}
	}
}
