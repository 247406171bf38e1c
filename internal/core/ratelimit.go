package core

import "time"

// RateLimitStrategy selects how a platform budget is accounted.
type RateLimitStrategy string

const (
	StrategySlidingWindow RateLimitStrategy = "sliding_window"
	StrategyTokenBucket   RateLimitStrategy = "token_bucket"
	StrategyFixedWindow   RateLimitStrategy = "fixed_window"
)

// ParseStrategy validates a strategy name. Empty selects sliding window.
func ParseStrategy(value string) (RateLimitStrategy, bool) {
	switch RateLimitStrategy(value) {
	case "":
		return StrategySlidingWindow, true
	case StrategySlidingWindow, StrategyTokenBucket, StrategyFixedWindow:
		return RateLimitStrategy(value), true
	default:
		return "", false
	}
}

// RateLimitState captures per-platform rate limiting state.
type RateLimitState struct {
	Platform     Platform          `json:"platform" yaml:"platform"`
	Strategy     RateLimitStrategy `json:"strategy" yaml:"strategy"`
	Limit        int               `json:"limit" yaml:"limit"`
	Window       time.Duration     `json:"window" yaml:"window"`
	RequestCount int               `json:"request_count" yaml:"request_count"`
	Tokens       float64           `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	WindowStart  time.Time         `json:"window_start" yaml:"window_start"`
	BackoffUntil *time.Time        `json:"backoff_until,omitempty" yaml:"backoff_until,omitempty"`
	Last429At    *time.Time        `json:"last_429_at,omitempty" yaml:"last_429_at,omitempty"`
}
