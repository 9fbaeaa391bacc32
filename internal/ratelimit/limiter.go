// Package ratelimit provides fixed-window request counting keyed by
// (user, action class). The limiter is injected wherever it is needed;
// there is no package-level singleton.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Class is an action class with its own window sizing.
type Class struct {
	Name   string
	Max    int
	Window time.Duration
}

// Predefined classes. Payment requests are limited tighter than general
// commands; Burst is the fraud heuristic's short-window check.
var (
	ClassPayment = Class{Name: "payment", Max: 10, Window: time.Minute}
	ClassCommand = Class{Name: "command", Max: 20, Window: time.Minute}
	ClassBurst   = Class{Name: "burst", Max: 3, Window: 30 * time.Second}
)

// Result reports the outcome of a check. The call that first exceeds the
// limit is itself counted and rejected.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type RateLimiter interface {
	Check(ctx context.Context, userID uuid.UUID, class Class) (Result, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. With horizontal
// scaling the limits become per-instance; use RedisLimiter for a shared
// counter store.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window)}
}

func (l *MemoryLimiter) Check(ctx context.Context, userID uuid.UUID, class Class) (Result, error) {
	key := fmt.Sprintf("%s:%s", userID.String(), class.Name)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.resetAt.Before(now) {
		w = &window{resetAt: now.Add(class.Window)}
		l.windows[key] = w
	}
	w.count++

	remaining := class.Max - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   w.count <= class.Max,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}, nil
}

// Compact drops expired windows. Entries are cheap and self-expiring, so
// this runs opportunistically from the background sweeper rather than on a
// fixed schedule.
func (l *MemoryLimiter) Compact() int {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if w.resetAt.Before(now) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
