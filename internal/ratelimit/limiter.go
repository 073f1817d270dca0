// Package ratelimit implements the fixed-window submission limiter.
//
// Each key (normally a client IP address) owns one window. The first call
// for a key opens the window, every call increments its counter, and once the
// counter passes the configured maximum the key is refused until the cooldown
// has elapsed since the window opened.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultCooldown is how long a window stays open.
	DefaultCooldown = 600 * time.Second

	// DefaultMaxRequests is the number of requests admitted per window.
	DefaultMaxRequests = 1
)

// window is the per-key counter state
type window struct {
	count int
	start time.Time
}

// Limiter is a per-key fixed-window counter. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	cooldown    time.Duration
	maxRequests int
	now         func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithCooldown overrides the window length
func WithCooldown(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.cooldown = d
		}
	}
}

// WithMaxRequests overrides the number of requests admitted per window
func WithMaxRequests(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxRequests = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a limiter with the default cooldown and maximum
func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows:     make(map[string]*window),
		cooldown:    DefaultCooldown,
		maxRequests: DefaultMaxRequests,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cooldown returns the configured window length
func (l *Limiter) Cooldown() time.Duration {
	return l.cooldown
}

// CheckAndConsume records one request for key.
//
// It returns limited=true when the request exceeds the window's allowance;
// retryAfter is then the time left until the window expires, truncated to
// whole seconds and never negative. The read-modify-write happens under a
// single lock so two concurrent first requests cannot both be admitted.
func (l *Limiter) CheckAndConsume(key string) (retryAfter time.Duration, limited bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.Sub(w.start) > l.cooldown {
		w = &window{start: now}
		l.windows[key] = w
	}

	w.count++
	if w.count <= l.maxRequests {
		return 0, false
	}

	remaining := (l.cooldown - now.Sub(w.start)).Truncate(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Message renders the client-facing rate limit error for a wait duration.
func Message(retryAfter time.Duration) string {
	return fmt.Sprintf("Too many requests. Please wait %d seconds before submitting again.", int64(retryAfter/time.Second))
}

// Sweep drops windows whose cooldown has passed and returns how many were
// removed. A dropped window behaves exactly like an expired one on the next
// request, so sweeping never changes a limiting decision.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) > l.cooldown {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Run sweeps stale windows every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.cooldown
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
