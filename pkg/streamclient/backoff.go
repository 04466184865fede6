package streamclient

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential doubling from Base up to
// Max, plus up to Jitter of random spread so a fleet of clients does not
// reconnect in lockstep.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	Jitter      time.Duration
	MaxAttempts int
	Cooldown    time.Duration
}

// DefaultBackoff returns the standard reconnect policy: 1s doubling to a
// 30s ceiling, ten attempts, then a five minute cooldown before the
// attempt counter resets.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:        time.Second,
		Max:         30 * time.Second,
		Jitter:      time.Second,
		MaxAttempts: 10,
		Cooldown:    5 * time.Minute,
	}
}

// Delay returns the wait before reconnect attempt n (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			delay = b.Max
			break
		}
	}
	if b.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(b.Jitter)))
	}
	return delay
}

// Exhausted reports whether attempt n has spent the attempt budget, i.e.
// the caller should stop after MaxAttempts failed attempts.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt >= b.MaxAttempts
}
