package bus

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/repository"
	"gorm.io/datatypes"
)

// PushSink is the black-box native push delivery target. The core only
// hands it a title/body/data payload; transport details are external.
type PushSink interface {
	Push(ctx context.Context, userID, title, body string, data []byte) error
}

// LogPushSink is the default no-op sink.
type LogPushSink struct{}

func (LogPushSink) Push(_ context.Context, userID, title, _ string, _ []byte) error {
	log.Printf("push sink: would deliver %q to user %s", title, userID)
	return nil
}

// WorkerConfig tunes the delivery worker pool. Zero values fall back to
// defaults.
type WorkerConfig struct {
	Workers     int           // concurrent consumers (default 4)
	QueueSize   int           // intent queue capacity (default 1024)
	MaxRetries  int           // publish attempts before giving up (default 3)
	BaseBackoff time.Duration // first retry delay, doubled per attempt (default 100ms)
}

func (c *WorkerConfig) norm() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
}

// Worker consumes the dispatch queue: it records SENT at publish time,
// publishes each intent to the bus with bounded backoff, and records FAILED
// when retries are exhausted. Local recipients are unaffected by bus
// failures because the dispatcher delivers to the local registry before
// enqueueing.
type Worker struct {
	queue  chan DeliveryIntent
	bus    Bus
	events repository.DeliveryEventRepositoryInterface
	push   PushSink
	conf   WorkerConfig

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewWorker(b Bus, events repository.DeliveryEventRepositoryInterface, push PushSink, conf WorkerConfig) *Worker {
	conf.norm()
	if push == nil {
		push = LogPushSink{}
	}
	return &Worker{
		queue:  make(chan DeliveryIntent, conf.QueueSize),
		bus:    b,
		events: events,
		push:   push,
		conf:   conf,
		stopCh: make(chan struct{}),
	}
}

// Start launches the consumer pool.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.conf.Workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-w.stopCh:
					return
				case intent := <-w.queue:
					w.process(ctx, intent)
				}
			}
		}()
	}
}

// Enqueue hands an intent to the worker pool. A full queue drops the intent
// with a FAILED record rather than blocking the producer's request path.
func (w *Worker) Enqueue(intent DeliveryIntent) {
	select {
	case w.queue <- intent:
	default:
		log.Printf("Delivery queue full, dropping intent %s", intent.EventID)
		w.recordFailure(intent, "delivery queue full")
	}
}

// Stop drains nothing; queued intents not yet consumed are lost, which
// at-least-once semantics tolerate (producers retry, clients dedupe).
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) process(ctx context.Context, intent DeliveryIntent) {
	// SENT marks the moment the intent enters the delivery pipeline.
	if intent.NotificationID != "" {
		w.recordEvent(intent.NotificationID, models.DeliverySent, map[string]interface{}{
			"event_id": intent.EventID,
			"origin":   intent.Origin,
		}, false)
	}

	if !intent.Broadcast && intent.TargetUserID != "" {
		if err := w.push.Push(ctx, intent.TargetUserID, intent.Title, intent.Body, intent.Payload); err != nil {
			log.Printf("Push sink failed for user %s: %v", intent.TargetUserID, err)
		}
	}

	var lastErr error
	backoff := w.conf.BaseBackoff
	for attempt := 0; attempt < w.conf.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if lastErr = w.bus.Publish(ctx, intent); lastErr == nil {
			return
		}
		log.Printf("Publish attempt %d failed for intent %s: %v", attempt+1, intent.EventID, lastErr)
	}

	w.recordFailure(intent, lastErr.Error())
}

func (w *Worker) recordFailure(intent DeliveryIntent, reason string) {
	if intent.NotificationID == "" {
		return
	}
	w.recordEvent(intent.NotificationID, models.DeliveryFailed, map[string]interface{}{
		"event_id": intent.EventID,
		"reason":   reason,
	}, false)
}

func (w *Worker) recordEvent(notificationID string, kind models.DeliveryEventKind, metadata map[string]interface{}, outOfOrder bool) {
	if w.events == nil {
		return
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		data = nil
	}
	event := &models.DeliveryEvent{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		Event:          kind,
		Metadata:       datatypes.JSON(data),
		OutOfOrder:     outOfOrder,
		Timestamp:      time.Now(),
	}
	if err := w.events.Create(event); err != nil {
		log.Printf("Failed to record %s event for notification %s: %v", kind, notificationID, err)
	}
}
