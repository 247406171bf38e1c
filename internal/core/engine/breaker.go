package engine

import (
	"sync"
	"time"

	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/metrics"
)

// CircuitBreaker tracks per-platform health and fast-fails platforms that
// keep failing. Each platform circuit is guarded independently.
type CircuitBreaker struct {
	Clock func() time.Time
	// OnTransition is called after every state change, outside the lock.
	OnTransition func(platform core.Platform, from, to core.CircuitState)

	circuits map[core.Platform]*circuit
}

// BreakerSettings configures one platform circuit.
type BreakerSettings struct {
	FailureThreshold int
	CoolDown         time.Duration
}

type circuit struct {
	mu       sync.Mutex
	settings BreakerSettings

	state         core.CircuitState
	failures      int
	lastFailure   time.Time
	openedAt      time.Time
	lastProbe     time.Time
	probeInFlight bool
}

// NewCircuitBreaker builds circuits for the given platforms, all CLOSED.
func NewCircuitBreaker(settings map[core.Platform]BreakerSettings) *CircuitBreaker {
	b := &CircuitBreaker{circuits: make(map[core.Platform]*circuit, len(settings))}
	for platform, s := range settings {
		if s.FailureThreshold < 1 {
			s.FailureThreshold = 1
		}
		b.circuits[platform] = &circuit{settings: s, state: core.CircuitClosed}
	}
	return b
}

// Allow reports whether a call to platform may proceed. It returns a
// circuit_open error while the circuit is open, and while a half-open probe
// is already in flight.
func (b *CircuitBreaker) Allow(platform core.Platform) error {
	c := b.get(platform)
	if c == nil {
		return nil
	}

	now := b.now()
	c.mu.Lock()
	var transitioned bool
	var err error
	switch c.state {
	case core.CircuitOpen:
		reopenAt := c.openedAt.Add(c.settings.CoolDown)
		if now.Before(reopenAt) {
			err = &core.PlatformError{
				Kind:       core.ErrorCircuitOpen,
				Platform:   platform,
				RetryAfter: reopenAt.Sub(now),
				Message:    "circuit open after repeated failures",
			}
			break
		}
		c.state = core.CircuitHalfOpen
		c.probeInFlight = true
		c.lastProbe = now
		transitioned = true
	case core.CircuitHalfOpen:
		if c.probeInFlight {
			err = &core.PlatformError{
				Kind:     core.ErrorCircuitOpen,
				Platform: platform,
				Message:  "circuit half-open, probe already in flight",
			}
			break
		}
		c.probeInFlight = true
		c.lastProbe = now
	}
	c.mu.Unlock()

	if transitioned {
		b.transition(platform, core.CircuitOpen, core.CircuitHalfOpen)
	}
	return err
}

// RecordSuccess resets the failure count and closes the circuit.
func (b *CircuitBreaker) RecordSuccess(platform core.Platform) {
	c := b.get(platform)
	if c == nil {
		return
	}

	c.mu.Lock()
	from := c.state
	c.failures = 0
	c.probeInFlight = false
	c.state = core.CircuitClosed
	c.mu.Unlock()

	if from != core.CircuitClosed {
		b.transition(platform, from, core.CircuitClosed)
	}
}

// RecordFailure counts a failure. The circuit opens once the threshold of
// consecutive failures is reached, or immediately when a half-open probe fails.
func (b *CircuitBreaker) RecordFailure(platform core.Platform) {
	c := b.get(platform)
	if c == nil {
		return
	}

	now := b.now()
	c.mu.Lock()
	from := c.state
	c.failures++
	c.lastFailure = now
	switch c.state {
	case core.CircuitHalfOpen:
		c.state = core.CircuitOpen
		c.openedAt = now
		c.probeInFlight = false
	case core.CircuitClosed:
		if c.failures >= c.settings.FailureThreshold {
			c.state = core.CircuitOpen
			c.openedAt = now
		}
	}
	to := c.state
	c.mu.Unlock()

	if from != to {
		b.transition(platform, from, to)
	}
}

// ReleaseProbe frees a half-open probe slot without recording an outcome.
// Used when the admitted call never reached the platform.
func (b *CircuitBreaker) ReleaseProbe(platform core.Platform) {
	c := b.get(platform)
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == core.CircuitHalfOpen {
		c.probeInFlight = false
	}
}

// State returns the current state of the platform circuit.
func (b *CircuitBreaker) State(platform core.Platform) core.CircuitState {
	return b.Snapshot(platform).State
}

// Snapshot returns a copy of the platform circuit.
func (b *CircuitBreaker) Snapshot(platform core.Platform) core.CircuitSnapshot {
	c := b.get(platform)
	if c == nil {
		return core.CircuitSnapshot{Platform: platform, State: core.CircuitClosed}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	snap := core.CircuitSnapshot{
		Platform:            platform,
		State:               c.state,
		ConsecutiveFailures: c.failures,
	}
	if !c.lastFailure.IsZero() {
		at := c.lastFailure
		snap.LastFailure = &at
	}
	if !c.openedAt.IsZero() {
		at := c.openedAt
		snap.OpenedAt = &at
	}
	if !c.lastProbe.IsZero() {
		at := c.lastProbe
		snap.LastProbe = &at
	}
	return snap
}

func (b *CircuitBreaker) transition(platform core.Platform, from, to core.CircuitState) {
	metrics.RecordCircuitTransition(string(platform), string(from), string(to))
	if b.OnTransition != nil {
		b.OnTransition(platform, from, to)
	}
}

func (b *CircuitBreaker) get(platform core.Platform) *circuit {
	if b == nil || b.circuits == nil {
		return nil
	}
	return b.circuits[platform]
}

func (b *CircuitBreaker) now() time.Time {
	if b == nil {
		return time.Now().UTC()
	}
	return nowUTC(b.Clock)
}
