package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gsokit/gsoscope/internal/core"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.sleeps = append(f.sleeps, d)
	return nil
}

func (f *fakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

func newTestLimiter(clock *fakeClock, limit RateLimit) *RateLimiter {
	limiter := NewRateLimiter(map[core.Platform]RateLimit{core.PlatformChatGPT: limit})
	limiter.Clock = clock.Now
	limiter.Sleep = clock.Sleep
	return limiter
}

func TestRateLimiterStrategiesWaitAfterLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    RateLimit
		wantWait time.Duration
	}{
		{
			name:     "sliding window",
			limit:    RateLimit{Strategy: core.StrategySlidingWindow, Limit: 3, Window: time.Minute},
			wantWait: time.Minute,
		},
		{
			name:     "token bucket",
			limit:    RateLimit{Strategy: core.StrategyTokenBucket, Limit: 3, Window: time.Minute},
			wantWait: 20 * time.Second,
		},
		{
			name:     "fixed window",
			limit:    RateLimit{Strategy: core.StrategyFixedWindow, Limit: 3, Window: time.Minute},
			wantWait: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			limiter := newTestLimiter(clock, tt.limit)
			ctx := context.Background()

			for i := 0; i < tt.limit.Limit; i++ {
				require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
			}
			require.Empty(t, clock.Sleeps(), "first L acquisitions must not wait")

			require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
			sleeps := clock.Sleeps()
			require.Len(t, sleeps, 1)
			require.Equal(t, tt.wantWait, sleeps[0])
		})
	}
}

func TestRateLimiterSlidingWindowWaitsForOldest(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, RateLimit{Strategy: core.StrategySlidingWindow, Limit: 2, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	clock.Advance(40 * time.Second)
	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))

	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	require.Equal(t, []time.Duration{20 * time.Second}, clock.Sleeps())

	state, ok := limiter.Snapshot(core.PlatformChatGPT)
	require.True(t, ok)
	require.Equal(t, 2, state.RequestCount)
}

func TestRateLimiterFixedWindowBoundary(t *testing.T) {
	clock := newFakeClock()
	clock.Advance(45 * time.Second)
	limiter := newTestLimiter(clock, RateLimit{Strategy: core.StrategyFixedWindow, Limit: 1, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	require.Equal(t, []time.Duration{15 * time.Second}, clock.Sleeps())
}

func TestRateLimiterTokenBucketBurstAndRefill(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, RateLimit{Strategy: core.StrategyTokenBucket, Limit: 60, Window: time.Minute, Burst: 2})
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	require.Empty(t, clock.Sleeps())

	clock.Advance(500 * time.Millisecond)
	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	require.Equal(t, []time.Duration{500 * time.Millisecond}, clock.Sleeps())
}

func TestRateLimiterBackoff(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, RateLimit{Strategy: core.StrategySlidingWindow, Limit: 100, Window: time.Minute})

	limiter.Record429(core.PlatformChatGPT, 30*time.Second)

	state, _ := limiter.Snapshot(core.PlatformChatGPT)
	require.NotNil(t, state.BackoffUntil)
	require.NotNil(t, state.Last429At)

	require.NoError(t, limiter.Acquire(context.Background(), core.PlatformChatGPT))
	require.Equal(t, []time.Duration{30 * time.Second}, clock.Sleeps())
}

func TestRateLimiterMaxWaitExceeded(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, RateLimit{Strategy: core.StrategySlidingWindow, Limit: 1, Window: time.Minute, MaxWait: 5 * time.Second})
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))
	err := limiter.Acquire(ctx, core.PlatformChatGPT)
	require.Error(t, err)
	require.Equal(t, core.ErrorRateLimitExceeded, core.KindOf(err))
	require.Empty(t, clock.Sleeps())
}

func TestRateLimiterCancelledWhileWaiting(t *testing.T) {
	limiter := NewRateLimiter(map[core.Platform]RateLimit{
		core.PlatformClaude: {Strategy: core.StrategySlidingWindow, Limit: 1, Window: time.Hour},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, limiter.Acquire(ctx, core.PlatformClaude))
	err := limiter.Acquire(ctx, core.PlatformClaude)
	require.Error(t, err)
	require.Equal(t, core.ErrorTimeout, core.KindOf(err))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRateLimiterPlatformsAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(map[core.Platform]RateLimit{
		core.PlatformChatGPT:    {Strategy: core.StrategySlidingWindow, Limit: 1, Window: time.Hour},
		core.PlatformPerplexity: {Strategy: core.StrategySlidingWindow, Limit: 1, Window: time.Hour},
	})
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, core.PlatformChatGPT))

	blocked := make(chan error, 1)
	waitCtx, cancel := context.WithCancel(ctx)
	go func() { blocked <- limiter.Acquire(waitCtx, core.PlatformChatGPT) }()

	done := make(chan error, 1)
	go func() { done <- limiter.Acquire(ctx, core.PlatformPerplexity) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("perplexity acquisition blocked by chatgpt waiter")
	}

	cancel()
	require.Error(t, <-blocked)
}

func TestRateLimiterUnknownPlatformUnlimited(t *testing.T) {
	limiter := NewRateLimiter(nil)
	require.NoError(t, limiter.Acquire(context.Background(), core.PlatformGoogleAI))

	var nilLimiter *RateLimiter
	require.NoError(t, nilLimiter.Acquire(context.Background(), core.PlatformGoogleAI))
}

func TestRateLimiterMargin(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, RateLimit{Strategy: core.StrategySlidingWindow, Limit: 10, Window: time.Minute})
	limiter.ApplySafetyMargin(0.5)

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Acquire(context.Background(), core.PlatformChatGPT))
	}
	require.Empty(t, clock.Sleeps())

	require.NoError(t, limiter.Acquire(context.Background(), core.PlatformChatGPT))
	require.Len(t, clock.Sleeps(), 1)

	state, _ := limiter.Snapshot(core.PlatformChatGPT)
	require.Equal(t, 5, state.Limit)
}
