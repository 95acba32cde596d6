package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(10, time.Minute)
	limiter.Clock = clock.Now

	for i := 0; i < 10; i++ {
		require.True(t, limiter.Admit("user-1"), "admission %d", i+1)
	}
	require.False(t, limiter.Admit("user-1"))
	require.Equal(t, 0, limiter.Remaining("user-1"))

	clock.Advance(time.Minute + time.Millisecond)
	require.True(t, limiter.Admit("user-1"))
	require.Equal(t, 9, limiter.Remaining("user-1"))
}

func TestRateLimiterRejectionHasNoSideEffects(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(1, time.Minute)
	limiter.Clock = clock.Now

	require.True(t, limiter.Admit("u"))
	clock.Advance(30 * time.Second)
	require.False(t, limiter.Admit("u"))

	// The rejected call must not push the reset point forward.
	require.Equal(t, 30*time.Second, limiter.ResetIn("u"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	require.True(t, limiter.Admit("a"))
	require.False(t, limiter.Admit("a"))
	require.True(t, limiter.Admit("b"))
}

func TestRateLimiterRemainingAndResetIn(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(3, time.Minute)
	limiter.Clock = clock.Now

	require.Equal(t, 3, limiter.Remaining("new"))
	require.Equal(t, time.Duration(0), limiter.ResetIn("new"))

	require.True(t, limiter.Admit("u"))
	clock.Advance(10 * time.Second)
	require.True(t, limiter.Admit("u"))

	require.Equal(t, 1, limiter.Remaining("u"))
	require.Equal(t, 50*time.Second, limiter.ResetIn("u"))

	clock.Advance(50 * time.Second)
	require.Equal(t, 2, limiter.Remaining("u"))
	require.Equal(t, 10*time.Second, limiter.ResetIn("u"))
}

func TestRateLimiterSweep(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(5, time.Minute)
	limiter.Clock = clock.Now

	require.True(t, limiter.Admit("idle"))
	clock.Advance(45 * time.Second)
	require.True(t, limiter.Admit("active"))
	require.Equal(t, 2, limiter.Tracked())

	clock.Advance(30 * time.Second)
	require.Equal(t, 1, limiter.Sweep())
	require.Equal(t, 1, limiter.Tracked())
	require.Equal(t, 4, limiter.Remaining("active"))
}

func TestRateLimiterConcurrentAdmitSameKey(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit("shared") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(5), admitted.Load())
}

func TestRateLimiterZeroValueUsesDefaults(t *testing.T) {
	limiter := &RateLimiter{}
	for i := 0; i < DefaultMaxRequests; i++ {
		require.True(t, limiter.Admit("u"))
	}
	require.False(t, limiter.Admit("u"))
}

func TestSweeperLifecycle(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(5, time.Minute)
	limiter.Clock = clock.Now

	require.True(t, limiter.Admit("idle"))
	clock.Advance(2 * time.Minute)

	sweeper := &Sweeper{Limiter: limiter, Interval: 5 * time.Millisecond}
	sweeper.Start(context.Background())
	sweeper.Start(context.Background())

	require.Eventually(t, func() bool {
		return limiter.Tracked() == 0
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()
}

func (c *fakeClock) Rewind(d time.Duration) {
	c.Advance(-d)
}

func TestRateLimiterClockStepsBackwards(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(3, time.Minute)
	limiter.Clock = clock.Now

	require.True(t, limiter.Admit("u"))
	clock.Rewind(2 * time.Minute)
	require.True(t, limiter.Admit("u"))

	// The rewound stamp ages out first even though it was recorded last.
	clock.Advance(90 * time.Second)
	require.Equal(t, 2, limiter.Remaining("u"))
	require.Equal(t, 90*time.Second, limiter.ResetIn("u"))

	clock.Advance(30 * time.Second)
	require.Equal(t, 0, limiter.Sweep())
	require.Equal(t, 1, limiter.Tracked())

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, limiter.Sweep())
	require.Equal(t, 0, limiter.Tracked())
}

func TestRateLimiterDefaultClockIsMonotonic(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := limiter.now()
	require.Contains(t, now.String(), "m=")
}
