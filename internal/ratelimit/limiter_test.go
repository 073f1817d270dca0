package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_FirstRequestAllowed(t *testing.T) {
	l := New()

	_, limited := l.CheckAndConsume("203.0.113.7")
	assert.False(t, limited, "first request should be admitted")
}

func TestLimiter_SecondRequestWithinCooldownRejected(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	_, limited := l.CheckAndConsume("203.0.113.7")
	require.False(t, limited)

	clock.Advance(90 * time.Second)
	retryAfter, limited := l.CheckAndConsume("203.0.113.7")
	require.True(t, limited, "second request inside the window should be rejected")
	assert.Equal(t, 510*time.Second, retryAfter)
	assert.Equal(t, "Too many requests. Please wait 510 seconds before submitting again.", Message(retryAfter))
}

func TestLimiter_RemainingIsFloored(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	l.CheckAndConsume("k")
	clock.Advance(1500 * time.Millisecond)

	retryAfter, limited := l.CheckAndConsume("k")
	require.True(t, limited)
	assert.Equal(t, 598*time.Second, retryAfter)
}

func TestLimiter_ResetAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	l.CheckAndConsume("k")
	clock.Advance(DefaultCooldown + time.Second)

	_, limited := l.CheckAndConsume("k")
	assert.False(t, limited, "request after the cooldown should open a new window")

	_, limited = l.CheckAndConsume("k")
	assert.True(t, limited, "window was reset, so the next request is limited again")
}

func TestLimiter_ExactCooldownBoundaryStillLimited(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	l.CheckAndConsume("k")
	clock.Advance(DefaultCooldown)

	retryAfter, limited := l.CheckAndConsume("k")
	assert.True(t, limited, "window only expires once its age exceeds the cooldown")
	assert.Equal(t, time.Duration(0), retryAfter)
}

func TestLimiter_RejectedRequestsStillCount(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		l.CheckAndConsume("k")
		clock.Advance(100 * time.Second)
	}

	// Window opened at t=0, now t=500; rejected calls did not move the start.
	retryAfter, limited := l.CheckAndConsume("k")
	require.True(t, limited)
	assert.Equal(t, 100*time.Second, retryAfter)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New()

	_, limited := l.CheckAndConsume("a")
	assert.False(t, limited)
	_, limited = l.CheckAndConsume("b")
	assert.False(t, limited)
	_, limited = l.CheckAndConsume("unknown")
	assert.False(t, limited)
	_, limited = l.CheckAndConsume("")
	assert.False(t, limited)

	assert.Equal(t, 4, l.Len())
}

func TestLimiter_MaxRequests(t *testing.T) {
	l := New(WithMaxRequests(3), WithCooldown(time.Minute))

	for i := 0; i < 3; i++ {
		_, limited := l.CheckAndConsume("k")
		assert.False(t, limited, "request %d should be admitted", i+1)
	}
	_, limited := l.CheckAndConsume("k")
	assert.True(t, limited)
	assert.Equal(t, time.Minute, l.Cooldown())
}

func TestLimiter_ConcurrentFirstRequests(t *testing.T) {
	l := New()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, limited := l.CheckAndConsume("198.51.100.1"); !limited {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load(), "exactly one concurrent request should be admitted")
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	l.CheckAndConsume("old")
	clock.Advance(DefaultCooldown / 2)
	l.CheckAndConsume("fresh")
	clock.Advance(DefaultCooldown/2 + time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	_, limited := l.CheckAndConsume("old")
	assert.False(t, limited, "swept key behaves like an expired window")
}

func TestLimiter_RunStopsOnCancel(t *testing.T) {
	l := New(WithCooldown(time.Millisecond))
	l.CheckAndConsume("k")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
