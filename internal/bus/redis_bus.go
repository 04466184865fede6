package bus

import (
	"context"
	"log"
	"sync"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/cache"
)

// DefaultChannel is the single logical channel carrying delivery intents.
const DefaultChannel = "notifications:intents"

// RedisBus carries delivery intents over a Redis pub/sub channel so a user
// connected to any instance receives the event, not only the instance that
// produced it.
type RedisBus struct {
	redis   *cache.RedisCache
	channel string

	mu      sync.Mutex
	cancels []context.CancelFunc
}

func NewRedisBus(redis *cache.RedisCache, channel string) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{redis: redis, channel: channel}
}

func (b *RedisBus) Publish(ctx context.Context, intent DeliveryIntent) error {
	data, err := intent.Encode()
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, b.channel, data)
}

// Subscribe starts a goroutine that forwards every received intent to
// handler. The goroutine lives until ctx is cancelled or Close is called.
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler) error {
	subCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	pubsub := b.redis.Subscribe(subCtx, b.channel)
	// Force the subscription to be established before returning so callers
	// do not publish into the void on startup.
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				intent, err := DecodeIntent([]byte(msg.Payload))
				if err != nil {
					log.Printf("Dropping undecodable intent from bus: %v", err)
					continue
				}
				handler(intent)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
	b.mu.Unlock()
	return nil
}
