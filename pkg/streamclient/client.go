// Package streamclient maintains a resilient client connection to the
// notification stream: it holds an SSE stream open, reconnects with
// exponential backoff, and falls back to polling while streaming is in
// cooldown. Streaming and polling are mutually exclusive; the client is
// in exactly one mode at a time.
package streamclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// State of the connection manager.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StatePolling:
		return "polling"
	}
	return "unknown"
}

// Event is one named server event delivered to the consumer. Heartbeats
// and keepalive comments are consumed internally and never surfaced.
type Event struct {
	Name string
	Data []byte
}

type Config struct {
	// StreamURL is the SSE endpoint, e.g. https://host/api/stream.
	StreamURL string
	// PollURL is the fallback endpoint, e.g. https://host/api/stream/updates.
	// Empty disables the polling fallback.
	PollURL string
	Token   string

	HTTPClient *http.Client
	Backoff    Backoff
	// PingTimeout reconnects when the server goes silent; it must exceed
	// the server's heartbeat interval. Default 90s.
	PingTimeout time.Duration
	// PollEvery is the fallback poll interval. Default 10s.
	PollEvery time.Duration

	OnEvent func(Event)
	OnState func(State)
}

func (c *Config) norm() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Backoff == (Backoff{}) {
		c.Backoff = DefaultBackoff()
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 90 * time.Second
	}
	if c.PollEvery <= 0 {
		c.PollEvery = 10 * time.Second
	}
}

// Client is the connection manager. Create with New, run with Start,
// release with Close.
type Client struct {
	conf Config

	mu       sync.Mutex
	state    State
	attempts int
	probeCh  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func New(conf Config) *Client {
	conf.norm()
	return &Client{
		conf:    conf,
		state:   StateDisconnected,
		probeCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start runs the manager until ctx ends or Close is called.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	go c.run(ctx)
}

// Close stops the manager and waits for the run loop to exit.
func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
			<-c.done
		}
	})
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Probe asks the manager to retry streaming immediately, skipping any
// pending backoff or cooldown wait. Used when the application learns the
// network came back (e.g. the browser's online event).
func (c *Client) Probe() {
	select {
	case c.probeCh <- struct{}{}:
	default:
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed && c.conf.OnState != nil {
		c.conf.OnState(s)
	}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateDisconnected)

	for {
		if ctx.Err() != nil {
			return
		}

		c.setState(StateConnecting)
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("streamclient: stream ended: %v", err)
		}

		c.mu.Lock()
		c.attempts++
		attempts := c.attempts
		c.mu.Unlock()

		if c.conf.Backoff.Exhausted(attempts) {
			// Attempt budget spent: poll for the cooldown window, then
			// start a fresh streaming cycle.
			c.mu.Lock()
			c.attempts = 0
			c.mu.Unlock()
			if !c.coolDown(ctx) {
				return
			}
			continue
		}

		c.setState(StateReconnecting)
		if !c.sleep(ctx, c.conf.Backoff.Delay(attempts)) {
			return
		}
	}
}

// sleep waits for d, a probe, or cancellation. Returns false on cancel.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.probeCh:
		return true
	case <-timer.C:
		return true
	}
}

// coolDown polls for the cooldown window. Returns false on cancel.
func (c *Client) coolDown(ctx context.Context) bool {
	c.setState(StatePolling)
	deadline := time.Now().Add(c.conf.Backoff.Cooldown)
	lastPoll := time.Now().Add(-c.conf.PollEvery)

	for time.Now().Before(deadline) {
		if c.conf.PollURL != "" && time.Since(lastPoll) >= c.conf.PollEvery {
			lastPoll = time.Now()
			if err := c.pollOnce(ctx); err != nil && ctx.Err() == nil {
				log.Printf("streamclient: poll failed: %v", err)
			}
		}
		timer := time.NewTimer(time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-c.probeCh:
			timer.Stop()
			return true
		case <-timer.C:
		}
	}
	return true
}

// stream opens the SSE connection and consumes it until it breaks. A nil
// error means the server closed the stream cleanly.
func (c *Client) stream(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.conf.StreamURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.conf.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.conf.Token)
	}

	resp, err := c.conf.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream endpoint returned %d", resp.StatusCode)
	}

	// Liveness watchdog: any server bytes (events, pings, keepalive
	// comments) count as life. A silent server past PingTimeout means the
	// connection is dead even if TCP has not noticed.
	activity := make(chan struct{}, 1)
	go func() {
		timer := time.NewTimer(c.conf.PingTimeout)
		defer timer.Stop()
		for {
			select {
			case <-streamCtx.Done():
				return
			case <-activity:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(c.conf.PingTimeout)
			case <-timer.C:
				cancel()
				return
			}
		}
	}()
	markActivity := func() {
		select {
		case activity <- struct{}{}:
		default:
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var data strings.Builder
	firstEvent := true

	for scanner.Scan() {
		line := scanner.Text()
		markActivity()

		switch {
		case line == "":
			if eventName != "" || data.Len() > 0 {
				if firstEvent {
					// The stream is only considered healthy once the server
					// has produced a full event; only then does the attempt
					// counter reset.
					firstEvent = false
					c.mu.Lock()
					c.attempts = 0
					c.mu.Unlock()
					c.setState(StateConnected)
				}
				c.emit(eventName, data.String())
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if streamCtx.Err() != nil && ctx.Err() == nil {
		return errors.New("server went silent past ping timeout")
	}
	return nil
}

func (c *Client) emit(name, data string) {
	if name == "" {
		name = "message"
	}
	// Heartbeats are liveness signals, not application events.
	if name == "ping" {
		return
	}
	if c.conf.OnEvent != nil {
		c.conf.OnEvent(Event{Name: name, Data: []byte(data)})
	}
}

type pollResponse struct {
	UserID    string            `json:"userId"`
	Timestamp int64             `json:"timestamp"`
	Updates   []json.RawMessage `json:"updates"`
}

// pollOnce fetches the updates endpoint and emits each notification as if
// it had arrived on the stream.
func (c *Client) pollOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.conf.PollURL, nil)
	if err != nil {
		return err
	}
	if c.conf.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.conf.Token)
	}

	resp, err := c.conf.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("poll endpoint returned %d", resp.StatusCode)
	}

	var body pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	for _, raw := range body.Updates {
		if c.conf.OnEvent != nil {
			c.conf.OnEvent(Event{Name: "notification", Data: raw})
		}
	}
	return nil
}
