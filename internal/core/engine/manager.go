package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gsokit/gsoscope/internal/ailink"
	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/metrics"
)

// SearchManager fans one query out to every enabled platform. Limiter and
// breaker state persist across queries run by the same manager.
type SearchManager struct {
	Clients  map[core.Platform]ailink.PlatformClient
	Limiter  *RateLimiter
	Breaker  *CircuitBreaker
	Policies map[core.Platform]RetryPolicy
	// Platforms is the enabled set in enumeration order.
	Platforms []core.Platform
	Timeout   time.Duration

	Clock  func() time.Time
	Logger *logging.Logger
	NewID  func() string
}

// NewSearchManager builds limiter, breaker, and retry state for every
// enabled platform in cfg. Each enabled platform needs a client.
func NewSearchManager(cfg *config.Config, clients map[core.Platform]ailink.PlatformClient) (*SearchManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	platforms := cfg.EnabledPlatforms()
	limits := make(map[core.Platform]RateLimit, len(platforms))
	breakers := make(map[core.Platform]BreakerSettings, len(platforms))
	policies := make(map[core.Platform]RetryPolicy, len(platforms))

	for _, p := range platforms {
		if clients[p] == nil {
			return nil, fmt.Errorf("no client for enabled platform %s", p)
		}
		pc, _ := cfg.Platform(p)

		strategy, ok := core.ParseStrategy(pc.RateLimit.Strategy)
		if !ok {
			return nil, fmt.Errorf("platforms.%s.rate_limit.strategy: unknown strategy %q", p, pc.RateLimit.Strategy)
		}
		limits[p] = RateLimit{
			Strategy: strategy,
			Limit:    pc.RateLimit.Limit,
			Window:   pc.RateLimit.Window,
			Burst:    pc.RateLimit.Burst,
			MaxWait:  pc.RateLimit.MaxWait,
		}
		breakers[p] = BreakerSettings{
			FailureThreshold: pc.CircuitBreaker.FailureThreshold,
			CoolDown:         pc.CircuitBreaker.CoolDown(),
		}
		policies[p] = RetryPolicy{
			MaxRetries: pc.Retry.MaxRetries,
			BaseDelay:  pc.Retry.BaseDelay(),
			CapDelay:   pc.Retry.CapDelay(),
			Jitter:     pc.Retry.Jitter,
		}
	}

	limiter := NewRateLimiter(limits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)

	m := &SearchManager{
		Clients:   clients,
		Limiter:   limiter,
		Breaker:   NewCircuitBreaker(breakers),
		Policies:  policies,
		Platforms: platforms,
		Timeout:   cfg.Search.Timeout,
	}
	m.Breaker.OnTransition = m.logTransition
	return m, nil
}

// SearchAll runs one query: request validation first, then every platform
// concurrently under a single deadline. The returned error is non-nil only
// for an invalid request. Platforms that have not answered when the deadline
// passes are reported as timeout_error without waiting for them.
func (m *SearchManager) SearchAll(ctx context.Context, req core.QueryRequest) (*core.AggregateResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	timeout := m.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := m.now()
	results := make([]core.PlatformResult, len(m.Platforms))
	filled := make([]bool, len(m.Platforms))

	type indexed struct {
		i   int
		res core.PlatformResult
	}
	// Buffered so workers that outlive the deadline never block.
	done := make(chan indexed, len(m.Platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range m.Platforms {
		g.Go(func() error {
			done <- indexed{i: i, res: m.runPlatform(gctx, p, req)}
			return nil
		})
	}

	pending := len(m.Platforms)
collect:
	for pending > 0 {
		select {
		case r := <-done:
			results[r.i], filled[r.i] = r.res, true
			pending--
		case <-ctx.Done():
			break collect
		}
	}
	// Take results that landed together with the deadline.
	for drained := false; pending > 0 && !drained; {
		select {
		case r := <-done:
			results[r.i], filled[r.i] = r.res, true
			pending--
		default:
			drained = true
		}
	}
	if pending == 0 {
		_ = g.Wait()
	}

	now := m.now()
	// Only published results are observed; late answers are dropped unseen.
	for i, p := range m.Platforms {
		if filled[i] {
			m.observe(results[i])
			continue
		}
		err := &core.PlatformError{Kind: core.ErrorTimeout, Platform: p, Message: "no response before search deadline", Err: ctx.Err()}
		res := core.ErrorResult(p, err, now)
		res.Simulated = m.Clients[p].Simulated()
		res.DurationMS = now.Sub(start).Milliseconds()
		m.observe(res)
		results[i] = res
	}

	agg := &core.AggregateResult{
		QueryID:   m.newID(),
		Domain:    req.Domain,
		Query:     req.Query,
		Timestamp: start,
		Platforms: results,
	}
	for _, res := range results {
		if res.Success {
			agg.OverallSuccess = true
			break
		}
	}

	metrics.RecordSearch(agg.OverallSuccess, now.Sub(start))
	if m.Logger != nil {
		m.Logger.Info("Search completed",
			zap.String("query_id", agg.QueryID),
			zap.String("domain", agg.Domain),
			zap.String("query", agg.Query),
			zap.Bool("overall_success", agg.OverallSuccess),
			zap.Duration("duration", now.Sub(start)))
	}
	return agg, nil
}

// runPlatform sequences breaker, retry, limiter, and client for one platform
// and always yields a result.
func (m *SearchManager) runPlatform(ctx context.Context, platform core.Platform, req core.QueryRequest) core.PlatformResult {
	start := m.now()
	client := m.Clients[platform]

	finish := func(res core.PlatformResult, attempts int) core.PlatformResult {
		res.Platform = platform
		res.Simulated = client.Simulated()
		res.Attempts = attempts
		res.DurationMS = m.now().Sub(start).Milliseconds()
		return res
	}

	if err := m.Breaker.Allow(platform); err != nil {
		return finish(core.ErrorResult(platform, err, m.now()), 0)
	}

	policy := m.Policies[platform]
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		if m.Logger != nil {
			m.Logger.Debug("Retrying platform call",
				zap.String("platform", string(platform)),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		}
	}

	res, attempts, err := Retry(ctx, policy, func(ctx context.Context) (core.PlatformResult, error) {
		if err := m.Limiter.Acquire(ctx, platform); err != nil {
			return core.PlatformResult{}, err
		}
		res, err := client.Call(ctx, req.Query, req.Domain)
		var perr *core.PlatformError
		if errors.As(err, &perr) && perr.StatusCode == http.StatusTooManyRequests {
			m.Limiter.Record429(platform, perr.RetryAfter)
		}
		return res, err
	})

	switch {
	case err == nil:
		m.Breaker.RecordSuccess(platform)
		return finish(res, attempts)
	case core.CountsAsFailure(err):
		m.Breaker.RecordFailure(platform)
	default:
		m.Breaker.ReleaseProbe(platform)
	}
	return finish(core.ErrorResult(platform, err, m.now()), attempts)
}

// SearchBatch runs reqs one after another through the same limiter and
// breaker state. It stops at the first invalid request or when ctx ends.
func (m *SearchManager) SearchBatch(ctx context.Context, reqs []core.QueryRequest) ([]*core.AggregateResult, error) {
	for i, req := range reqs {
		if err := req.Normalized().Validate(); err != nil {
			return nil, fmt.Errorf("query %d: %w", i+1, err)
		}
	}

	out := make([]*core.AggregateResult, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		agg, err := m.SearchAll(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, agg)
	}
	return out, nil
}

// PlatformStatus is the live orchestration state of one enabled platform.
type PlatformStatus struct {
	Platform  core.Platform        `json:"platform" yaml:"platform"`
	Simulated bool                 `json:"simulated" yaml:"simulated"`
	RateLimit *core.RateLimitState `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Circuit   core.CircuitSnapshot `json:"circuit" yaml:"circuit"`
}

// Status reports limiter and breaker state per enabled platform, in
// enumeration order.
func (m *SearchManager) Status() []PlatformStatus {
	out := make([]PlatformStatus, 0, len(m.Platforms))
	for _, p := range m.Platforms {
		st := PlatformStatus{
			Platform:  p,
			Simulated: m.Clients[p].Simulated(),
			Circuit:   m.Breaker.Snapshot(p),
		}
		if rl, ok := m.Limiter.Snapshot(p); ok {
			st.RateLimit = &rl
		}
		out = append(out, st)
	}
	return out
}

func (m *SearchManager) observe(res core.PlatformResult) {
	kind := ""
	if res.ErrorKind != nil {
		kind = string(*res.ErrorKind)
	}
	duration := time.Duration(res.DurationMS) * time.Millisecond
	metrics.RecordPlatformResult(string(res.Platform), res.Success, kind, res.Simulated, res.Attempts, duration)
	if res.Success {
		metrics.RecordCitation(string(res.Platform), res.Cited())
	}

	if m.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("platform", string(res.Platform)),
		zap.Bool("simulated", res.Simulated),
		zap.Int("attempts", res.Attempts),
		zap.Int64("duration_ms", res.DurationMS),
	}
	if res.Success {
		if res.Position != nil {
			fields = append(fields, zap.Int("position", *res.Position))
		}
		m.Logger.Debug("Platform answered", fields...)
		return
	}
	fields = append(fields, zap.String("error_kind", kind), zap.String("error", res.Error))
	m.Logger.Warn("Platform failed", fields...)
}

func (m *SearchManager) logTransition(platform core.Platform, from, to core.CircuitState) {
	if m.Logger == nil {
		return
	}
	m.Logger.Info("Circuit state changed",
		zap.String("platform", string(platform)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
}

func (m *SearchManager) now() time.Time {
	return nowUTC(m.Clock)
}

func (m *SearchManager) newID() string {
	if m.NewID != nil {
		return m.NewID()
	}
	return uuid.NewString()
}

// SearchAll builds clients and a manager from cfg and runs one query. Use a
// SearchManager directly to keep limiter and breaker state across queries.
func SearchAll(ctx context.Context, req core.QueryRequest, cfg *config.Config) (*core.AggregateResult, error) {
	if err := req.Normalized().Validate(); err != nil {
		return nil, err
	}
	set, err := ailink.NewClients(cfg, ailink.Options{})
	if err != nil {
		return nil, err
	}
	m, err := NewSearchManager(cfg, set.Clients)
	if err != nil {
		return nil, err
	}
	return m.SearchAll(ctx, req)
}
