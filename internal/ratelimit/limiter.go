package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Operation names used as counter keys and for per-operation rules.
const (
	OpCreate  = "create"
	OpView    = "view"
	OpClaim   = "claim"
	OpRename  = "rename"
	OpDelete  = "delete"
	OpList    = "list"
	OpPending = "pending"
)

// counterTTLBuffer pads counter entry expiry past the window so a counter
// never disappears while its window is still open.
const counterTTLBuffer = 10 * time.Second

// Rule is one operation's budget: at most Limit calls per fixed Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result reports one gate decision. ResetAt is the instant the current
// window rolls over; it stays constant for every call inside the window.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// CounterStore is the expiring counter backing a fixed-window limiter. Incr
// bumps the counter for key, starting a fresh window (count=1) when none is
// open, and returns the count together with the window's reset instant.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter gates requests per (client, operation) with fixed time windows.
// When the counter store is unreachable the request is allowed.
type Limiter struct {
	counters CounterStore
	rules    map[string]Rule
	fallback Rule
	log      *zap.SugaredLogger
}

func New(counters CounterStore, rules map[string]Rule, fallback Rule, log *zap.SugaredLogger) *Limiter {
	return &Limiter{counters: counters, rules: rules, fallback: fallback, log: log}
}

// Allow records one call by clientKey against op's budget and reports
// whether it fits the current window.
func (l *Limiter) Allow(ctx context.Context, clientKey, op string) Result {
	rule, ok := l.rules[op]
	if !ok {
		rule = l.fallback
	}

	key := fmt.Sprintf("ratelimit:%s:%s", clientKey, op)
	count, resetAt, err := l.counters.Incr(ctx, key, rule.Window)
	if err != nil {
		l.log.Warnw("rate limit counter unavailable, failing open", "op", op, "error", err)
		return Result{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit, ResetAt: time.Now().Add(rule.Window)}
	}

	remaining := rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(rule.Limit),
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// RetryAfter returns the whole seconds until the window resets, at least 1.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return secs
}
