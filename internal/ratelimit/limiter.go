package ratelimit

import (
	"context"
	"log"
	"time"
)

// Named rules applied by the HTTP layer.
const (
	RuleStreamConnectUser = "stream_connect_user"
	RuleStreamConnectIP   = "stream_connect_ip"
	RulePollUpdates       = "poll_updates"
	RuleDispatch          = "dispatch"
	RuleTrack             = "track"
)

// Rule bounds request counts for one (rule, key) pair per window.
type Rule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRules covers every surface the core rate-limits.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		RuleStreamConnectUser: {Limit: 10, Window: time.Minute},
		RuleStreamConnectIP:   {Limit: 30, Window: time.Minute},
		RulePollUpdates:       {Limit: 60, Window: time.Minute},
		RuleDispatch:          {Limit: 120, Window: time.Minute},
		RuleTrack:             {Limit: 300, Window: time.Minute},
	}
}

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter applies named fixed-window rules over a pluggable store. A store
// failure fails open: notification delivery must never black out because the
// limiter's backing store is down.
type Limiter struct {
	store Store
	rules map[string]Rule
}

func NewLimiter(store Store, rules map[string]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Limiter{store: store, rules: rules}
}

// Check applies the named rule to key. Unknown rules allow the request.
func (l *Limiter) Check(ctx context.Context, ruleName, key string) Decision {
	rule, ok := l.rules[ruleName]
	if !ok {
		return Decision{Allowed: true}
	}

	count, resetIn, err := l.store.Incr(ctx, ruleName+":"+key, rule.Window)
	if err != nil {
		// Fail open: a limiter outage must not cascade into a delivery
		// blackout.
		log.Printf("Rate limit store error for %s/%s, failing open: %v", ruleName, key, err)
		return Decision{Allowed: true}
	}

	if count > rule.Limit {
		retryAfter := resetIn
		if retryAfter <= 0 {
			retryAfter = rule.Window
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}
	return Decision{Allowed: true, Remaining: rule.Limit - count}
}
