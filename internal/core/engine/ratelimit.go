package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/metrics"
)

// RateLimiter enforces per-platform request budgets. The platform set is
// fixed at construction; each platform has its own lock so waiting on one
// never blocks another.
type RateLimiter struct {
	Clock  func() time.Time
	Sleep  SleepFunc
	Margin float64

	platforms map[core.Platform]*platformLimiter
}

// RateLimit describes one platform budget.
type RateLimit struct {
	Strategy core.RateLimitStrategy
	Limit    int
	Window   time.Duration
	// Burst is the token bucket capacity; zero means Limit.
	Burst int
	// MaxWait fails acquisitions that would block longer; zero waits indefinitely.
	MaxWait time.Duration
}

// tokenEpsilon absorbs float drift in token refill arithmetic.
const tokenEpsilon = 1e-9

type platformLimiter struct {
	// gate serializes acquisitions and can be abandoned on ctx cancellation.
	gate chan struct{}

	mu    sync.Mutex
	limit RateLimit

	log []time.Time

	tokens     float64
	lastRefill time.Time

	windowStart time.Time
	count       int

	backoffUntil time.Time
	last429At    time.Time
}

// NewRateLimiter builds a limiter for the given platforms.
func NewRateLimiter(limits map[core.Platform]RateLimit) *RateLimiter {
	r := &RateLimiter{platforms: make(map[core.Platform]*platformLimiter, len(limits))}
	for platform, limit := range limits {
		if limit.Strategy == "" {
			limit.Strategy = core.StrategySlidingWindow
		}
		r.platforms[platform] = &platformLimiter{
			gate:  make(chan struct{}, 1),
			limit: limit,
		}
	}
	return r
}

// Acquire blocks until platform has budget for one request. It fails with a
// rate_limit_exceeded error when the required wait exceeds MaxWait, and with
// a timeout error when ctx is done while waiting. Platforms without a
// configured budget are never limited.
func (r *RateLimiter) Acquire(ctx context.Context, platform core.Platform) error {
	pl := r.get(platform)
	if pl == nil {
		return nil
	}

	select {
	case pl.gate <- struct{}{}:
	case <-ctx.Done():
		return cancelledWaiting(platform, ctx.Err())
	}
	defer func() { <-pl.gate }()

	var waited time.Duration
	for {
		wait := pl.reserve(r.now(), r.Margin)
		if wait <= 0 {
			return nil
		}

		maxWait := pl.maxWait()
		if maxWait > 0 && waited+wait > maxWait {
			return &core.PlatformError{
				Kind:       core.ErrorRateLimitExceeded,
				Platform:   platform,
				RetryAfter: wait,
				Message:    "required wait " + wait.Round(time.Millisecond).String() + " exceeds max_wait " + maxWait.String(),
			}
		}

		metrics.RecordRateLimitWait(string(platform), wait)
		if err := r.sleep(ctx, wait); err != nil {
			return cancelledWaiting(platform, err)
		}
		waited += wait
	}
}

// Record429 applies a backoff floor from a rate-limit response. The next
// acquisition waits at least until now+retryAfter regardless of strategy.
func (r *RateLimiter) Record429(platform core.Platform, retryAfter time.Duration) {
	pl := r.get(platform)
	if pl == nil {
		return
	}

	now := r.now()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.last429At = now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		if until.After(pl.backoffUntil) {
			pl.backoffUntil = until
		}
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

// Snapshot returns a copy of the platform limiter state.
func (r *RateLimiter) Snapshot(platform core.Platform) (core.RateLimitState, bool) {
	pl := r.get(platform)
	if pl == nil {
		return core.RateLimitState{}, false
	}

	now := r.now()
	pl.mu.Lock()
	defer pl.mu.Unlock()

	limit := applyMargin(pl.limit, r.Margin)
	state := core.RateLimitState{
		Platform: platform,
		Strategy: limit.Strategy,
		Limit:    limit.Limit,
		Window:   limit.Window,
	}
	switch limit.Strategy {
	case core.StrategyTokenBucket:
		pl.refill(now, limit)
		state.Tokens = pl.tokens
		state.WindowStart = pl.lastRefill
	case core.StrategyFixedWindow:
		if now.Truncate(limit.Window).Equal(pl.windowStart) {
			state.RequestCount = pl.count
		}
		state.WindowStart = now.Truncate(limit.Window)
	default:
		pl.prune(now, limit.Window)
		state.RequestCount = len(pl.log)
		if len(pl.log) > 0 {
			state.WindowStart = pl.log[0]
		}
	}
	if now.Before(pl.backoffUntil) {
		until := pl.backoffUntil
		state.BackoffUntil = &until
	}
	if !pl.last429At.IsZero() {
		at := pl.last429At
		state.Last429At = &at
	}
	return state, true
}

// reserve consumes one unit of budget and returns zero, or returns how long
// to wait before trying again.
func (pl *platformLimiter) reserve(now time.Time, margin float64) time.Duration {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if now.Before(pl.backoffUntil) {
		return pl.backoffUntil.Sub(now)
	}

	limit := applyMargin(pl.limit, margin)
	switch limit.Strategy {
	case core.StrategyTokenBucket:
		pl.refill(now, limit)
		if pl.tokens >= 1-tokenEpsilon {
			pl.tokens = math.Max(0, pl.tokens-1)
			return 0
		}
		rate := refillRate(limit)
		wait := time.Duration(math.Ceil((1 - pl.tokens) / rate * float64(time.Second)))
		if wait <= 0 {
			wait = time.Nanosecond
		}
		return wait
	case core.StrategyFixedWindow:
		start := now.Truncate(limit.Window)
		if !start.Equal(pl.windowStart) {
			pl.windowStart = start
			pl.count = 0
		}
		if pl.count < limit.Limit {
			pl.count++
			return 0
		}
		return start.Add(limit.Window).Sub(now)
	default:
		pl.prune(now, limit.Window)
		if len(pl.log) < limit.Limit {
			pl.log = append(pl.log, now)
			return 0
		}
		return pl.log[0].Add(limit.Window).Sub(now)
	}
}

func (pl *platformLimiter) prune(now time.Time, window time.Duration) {
	cutoff := 0
	for cutoff < len(pl.log) && now.Sub(pl.log[cutoff]) >= window {
		cutoff++
	}
	if cutoff > 0 {
		pl.log = append(pl.log[:0], pl.log[cutoff:]...)
	}
}

func (pl *platformLimiter) refill(now time.Time, limit RateLimit) {
	capacity := float64(bucketCapacity(limit))
	if pl.lastRefill.IsZero() {
		pl.tokens = capacity
		pl.lastRefill = now
		return
	}
	elapsed := now.Sub(pl.lastRefill)
	if elapsed <= 0 {
		return
	}
	pl.tokens = math.Min(capacity, pl.tokens+elapsed.Seconds()*refillRate(limit))
	pl.lastRefill = now
}

func (pl *platformLimiter) maxWait() time.Duration {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.limit.MaxWait
}

func (r *RateLimiter) get(platform core.Platform) *platformLimiter {
	if r == nil || r.platforms == nil {
		return nil
	}
	return r.platforms[platform]
}

func (r *RateLimiter) now() time.Time {
	if r == nil {
		return time.Now().UTC()
	}
	return nowUTC(r.Clock)
}

func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if r != nil && r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func applyMargin(limit RateLimit, margin float64) RateLimit {
	if margin <= 0 || margin >= 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.Limit) * margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.Limit = adjusted
	if limit.Burst > 0 {
		burst := int(math.Floor(float64(limit.Burst) * margin))
		if burst < 1 {
			burst = 1
		}
		limit.Burst = burst
	}
	return limit
}

func bucketCapacity(limit RateLimit) int {
	if limit.Burst > 0 {
		return limit.Burst
	}
	return limit.Limit
}

// refillRate is tokens per second.
func refillRate(limit RateLimit) float64 {
	return float64(limit.Limit) / limit.Window.Seconds()
}

func cancelledWaiting(platform core.Platform, err error) error {
	return &core.PlatformError{
		Kind:     core.ErrorTimeout,
		Platform: platform,
		Message:  "cancelled while waiting for rate limit",
		Err:      err,
	}
}
