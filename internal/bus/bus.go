package bus

import (
	"context"
	"sync"
)

// Handler consumes one delivery intent received from the bus.
type Handler func(intent DeliveryIntent)

// Bus propagates delivery intents to every subscribed instance. Exactly one
// logical channel is used; delivery is at-least-once.
type Bus interface {
	Publish(ctx context.Context, intent DeliveryIntent) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// MemoryBus is the single-instance/test implementation: every published
// intent is delivered synchronously to all subscribed handlers in-process.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, intent DeliveryIntent) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(intent)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, handler Handler) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.handlers = nil
	b.closed = true
	b.mu.Unlock()
	return nil
}
