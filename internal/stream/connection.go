package stream

import (
	"errors"
	"sync"
	"time"
)

// ErrSlowConnection is returned when a connection's send buffer is full; the
// registry treats the connection as dead and removes it.
var ErrSlowConnection = errors.New("stream: connection send buffer full")

// Frame is one named event queued for a single connection. The transport
// goroutine (SSE writer or WebSocket writer) drains Frames and owns the
// actual socket write.
type Frame struct {
	Event string
	Data  []byte
}

// Connection is one live stream owned by this instance's registry. It exists
// only in process memory and dies with the transport.
type Connection struct {
	ID         string
	UserID     string
	InstanceID string
	OpenedAt   time.Time
	Metadata   map[string]string

	frames    chan Frame
	done      chan struct{}
	closeOnce sync.Once

	// lastActivity is guarded by the registry mutex.
	lastActivity time.Time
}

// Frames is the queue the transport goroutine drains.
func (c *Connection) Frames() <-chan Frame {
	return c.frames
}

// Done is closed when the registry removes the connection; the transport
// goroutine must exit when it fires.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// push enqueues a frame without blocking. A full buffer means the client
// stopped reading; the caller removes the connection.
func (c *Connection) push(frame Frame) error {
	select {
	case c.frames <- frame:
		return nil
	case <-c.done:
		return ErrSlowConnection
	default:
		return ErrSlowConnection
	}
}
