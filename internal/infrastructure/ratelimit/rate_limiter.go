package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage       = "send_message"
	ActionTyping            = "typing"
	ActionReaction          = "reaction"
	ActionStartConversation = "start_conversation"
	ActionRequest           = "request"
)

// Policy is a token bucket: PerSecond tokens are added up to Burst.
type Policy struct {
	PerSecond float64
	Burst     int
}

var defaultPolicies = map[string]Policy{
	ActionSendMessage:       {PerSecond: 1, Burst: 10},
	ActionTyping:            {PerSecond: 0.5, Burst: 30},
	ActionReaction:          {PerSecond: 2, Burst: 20},
	ActionStartConversation: {PerSecond: 1.0 / 60, Burst: 10},
	ActionRequest:           {PerSecond: 20, Burst: 60},
}

var fallbackPolicy = Policy{PerSecond: 1.0 / 3, Burst: 20}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one limiter per user and action.
type RateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	policies map[string]Policy
	ttl      time.Duration
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	policies := make(map[string]Policy, len(defaultPolicies))
	for action, p := range defaultPolicies {
		policies[action] = p
	}
	return &RateLimiter{
		entries:  make(map[string]*entry),
		policies: policies,
		ttl:      time.Hour,
		now:      time.Now,
	}
}

// SetPolicy overrides the limit for an action. Existing limiters keep their
// old limit until they are evicted.
func (rl *RateLimiter) SetPolicy(action string, p Policy) {
	rl.mu.Lock()
	rl.policies[action] = p
	rl.mu.Unlock()
}

func (rl *RateLimiter) get(userID, action string) *rate.Limiter {
	key := userID + ":" + action
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	p, ok := rl.policies[action]
	if !ok {
		p = fallbackPolicy
	}
	l := rate.NewLimiter(rate.Limit(p.PerSecond), p.Burst)
	rl.entries[key] = &entry{limiter: l, lastSeen: now}
	return l
}

// Allow consumes a token for the user action. When none is available it
// reports how long until the next one.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	l := rl.get(userID, action)
	r := l.ReserveN(rl.now(), 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(rl.now()); delay > 0 {
		r.Cancel()
		return false, delay
	}
	return true, 0
}

// Cleanup drops limiters that have been idle longer than the TTL.
func (rl *RateLimiter) Cleanup() int {
	cutoff := rl.now().Add(-rl.ttl)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, e := range rl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine evicts idle limiters every 30 minutes until ctx ends.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
