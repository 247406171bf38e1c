package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gsokit/gsoscope/internal/core"
)

// ValidationError collects every configuration problem found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "invalid configuration"
	}
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration: %s (and %d more)", e.Problems[0], len(e.Problems)-1)
}

// IsValidationError reports whether err is a configuration validation failure.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// Validate checks the configuration. It is called by Load and Decode, and
// should be called by anyone building a Config by hand.
func (c *Config) Validate() error {
	if c == nil {
		return &ValidationError{Problems: []string{"config is nil"}}
	}

	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Search.Timeout <= 0 {
		add("search.timeout must be positive")
	}
	if c.Search.DemoLatency < 0 {
		add("search.demo_latency must not be negative")
	}
	if c.RateLimitMargin <= 0 || c.RateLimitMargin > 1 {
		add("rate_limit_margin must be in (0, 1]")
	}

	names := make([]string, 0, len(c.Platforms))
	for name := range c.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := c.Platforms[name]
		if !core.Platform(name).Valid() {
			add("platforms.%s: unknown platform", name)
			continue
		}
		prefix := "platforms." + name
		if pc.Weight < 0 || pc.Weight > 1 {
			add("%s.weight must be between 0 and 1", prefix)
		}
		if pc.Timeout < 0 {
			add("%s.timeout must not be negative", prefix)
		}
		if _, ok := core.ParseStrategy(pc.RateLimit.Strategy); !ok {
			add("%s.rate_limit.strategy %q is not one of sliding_window, token_bucket, fixed_window", prefix, pc.RateLimit.Strategy)
		}
		if pc.RateLimit.Limit <= 0 {
			add("%s.rate_limit.limit must be positive", prefix)
		}
		if pc.RateLimit.Window <= 0 {
			add("%s.rate_limit.window must be positive", prefix)
		}
		if pc.RateLimit.Burst < 0 {
			add("%s.rate_limit.burst must not be negative", prefix)
		}
		if pc.RateLimit.MaxWait < 0 {
			add("%s.rate_limit.max_wait must not be negative", prefix)
		}
		if pc.Retry.MaxRetries < 0 {
			add("%s.retry.max_retries must not be negative", prefix)
		}
		if pc.Retry.BaseDelayMS < 0 || pc.Retry.CapDelayMS < 0 {
			add("%s.retry delays must not be negative", prefix)
		}
		if pc.Retry.CapDelayMS < pc.Retry.BaseDelayMS {
			add("%s.retry.cap_delay_ms must be >= base_delay_ms", prefix)
		}
		if pc.Retry.Jitter < 0 || pc.Retry.Jitter > 1 {
			add("%s.retry.jitter must be between 0 and 1", prefix)
		}
		if pc.CircuitBreaker.FailureThreshold <= 0 {
			add("%s.circuit_breaker.failure_threshold must be positive", prefix)
		}
		if pc.CircuitBreaker.CoolDownMS < 0 {
			add("%s.circuit_breaker.cool_down_ms must not be negative", prefix)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
