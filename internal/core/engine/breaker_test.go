package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gsokit/gsoscope/internal/core"
)

func newTestBreaker(clock *fakeClock, threshold int, coolDown time.Duration) *CircuitBreaker {
	b := NewCircuitBreaker(map[core.Platform]BreakerSettings{
		core.PlatformPerplexity: {FailureThreshold: threshold, CoolDown: coolDown},
		core.PlatformClaude:     {FailureThreshold: threshold, CoolDown: coolDown},
	})
	b.Clock = clock.Now
	return b
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 3, time.Minute)

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow(core.PlatformPerplexity))
		b.RecordFailure(core.PlatformPerplexity)
	}
	require.Equal(t, core.CircuitClosed, b.State(core.PlatformPerplexity))

	require.NoError(t, b.Allow(core.PlatformPerplexity))
	b.RecordFailure(core.PlatformPerplexity)
	require.Equal(t, core.CircuitOpen, b.State(core.PlatformPerplexity))

	err := b.Allow(core.PlatformPerplexity)
	require.Error(t, err)
	require.Equal(t, core.ErrorCircuitOpen, core.KindOf(err))
	require.Equal(t, time.Minute, core.RetryAfterOf(err))

	// other platforms are unaffected
	require.NoError(t, b.Allow(core.PlatformClaude))
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 2, time.Minute)

	b.RecordFailure(core.PlatformClaude)
	b.RecordSuccess(core.PlatformClaude)
	b.RecordFailure(core.PlatformClaude)
	require.Equal(t, core.CircuitClosed, b.State(core.PlatformClaude))
	require.Equal(t, 1, b.Snapshot(core.PlatformClaude).ConsecutiveFailures)
}

func TestCircuitBreakerHalfOpenAllowsExactlyOneProbe(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 1, 30*time.Second)
	var transitions []core.CircuitState
	b.OnTransition = func(_ core.Platform, _, to core.CircuitState) {
		transitions = append(transitions, to)
	}

	b.RecordFailure(core.PlatformPerplexity)
	require.Error(t, b.Allow(core.PlatformPerplexity))

	clock.Advance(30 * time.Second)
	require.NoError(t, b.Allow(core.PlatformPerplexity))
	require.Equal(t, core.CircuitHalfOpen, b.State(core.PlatformPerplexity))

	err := b.Allow(core.PlatformPerplexity)
	require.Error(t, err)
	require.Equal(t, core.ErrorCircuitOpen, core.KindOf(err))

	b.RecordSuccess(core.PlatformPerplexity)
	require.Equal(t, core.CircuitClosed, b.State(core.PlatformPerplexity))
	require.NoError(t, b.Allow(core.PlatformPerplexity))

	require.Equal(t, []core.CircuitState{core.CircuitOpen, core.CircuitHalfOpen, core.CircuitClosed}, transitions)
}

func TestCircuitBreakerProbeFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 2, 10*time.Second)

	b.RecordFailure(core.PlatformClaude)
	b.RecordFailure(core.PlatformClaude)
	opened := b.Snapshot(core.PlatformClaude).OpenedAt
	require.NotNil(t, opened)

	clock.Advance(10 * time.Second)
	require.NoError(t, b.Allow(core.PlatformClaude))
	b.RecordFailure(core.PlatformClaude)

	snap := b.Snapshot(core.PlatformClaude)
	require.Equal(t, core.CircuitOpen, snap.State)
	require.True(t, snap.OpenedAt.After(*opened), "open time must be re-stamped")

	clock.Advance(5 * time.Second)
	require.Error(t, b.Allow(core.PlatformClaude))
}

func TestCircuitBreakerReleaseProbe(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 1, time.Second)

	b.RecordFailure(core.PlatformClaude)
	clock.Advance(time.Second)
	require.NoError(t, b.Allow(core.PlatformClaude))

	b.ReleaseProbe(core.PlatformClaude)
	require.Equal(t, core.CircuitHalfOpen, b.State(core.PlatformClaude))
	require.NoError(t, b.Allow(core.PlatformClaude))
}

func TestCircuitBreakerConcurrentHalfOpen(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 1, time.Second)
	b.RecordFailure(core.PlatformPerplexity)
	clock.Advance(time.Second)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow(core.PlatformPerplexity) == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), admitted.Load())
}

func TestCircuitBreakerUnknownPlatform(t *testing.T) {
	b := NewCircuitBreaker(nil)
	require.NoError(t, b.Allow(core.PlatformGoogleAI))
	b.RecordFailure(core.PlatformGoogleAI)
	require.Equal(t, core.CircuitClosed, b.State(core.PlatformGoogleAI))
}
