package core

import "time"

// CircuitState is the health state of one platform.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// CircuitSnapshot is a point-in-time copy of one platform breaker.
type CircuitSnapshot struct {
	Platform            Platform     `json:"platform" yaml:"platform"`
	State               CircuitState `json:"state" yaml:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures" yaml:"consecutive_failures"`
	LastFailure         *time.Time   `json:"last_failure,omitempty" yaml:"last_failure,omitempty"`
	OpenedAt            *time.Time   `json:"opened_at,omitempty" yaml:"opened_at,omitempty"`
	LastProbe           *time.Time   `json:"last_probe,omitempty" yaml:"last_probe,omitempty"`
}
