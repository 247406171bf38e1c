package metrics

import (
	"time"

	"github.com/gsokit/gsoscope/internal/observability"
)

// Search orchestration metrics
const (
	SearchesTotal           = "gso_searches_total"
	SearchDuration          = "gso_search_duration_ms"
	PlatformResultsTotal    = "gso_platform_results_total"
	PlatformCallDuration    = "gso_platform_call_duration_ms"
	PlatformAttemptsTotal   = "gso_platform_attempts_total"
	PlatformCitationsTotal  = "gso_platform_citations_total"
	CircuitTransitionsTotal = "gso_circuit_transitions_total"
	RateLimitWaitsTotal     = "gso_rate_limit_waits_total"
	RateLimitWaitDuration   = "gso_rate_limit_wait_duration_ms"
	DemoResponsesTotal      = "gso_demo_responses_total"
)

// RecordSearch records one aggregated search.
func RecordSearch(overallSuccess bool, duration time.Duration) {
	status := "success"
	if !overallSuccess {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SearchesTotal,
			1,
			map[string]string{"status": status},
		)
		_ = observability.TelemetrySystem.Histogram(
			SearchDuration,
			duration,
			map[string]string{"status": status},
		)
	}
}

// RecordPlatformResult records the outcome of one platform worker.
func RecordPlatformResult(platform string, success bool, errorKind string, simulated bool, attempts int, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	if errorKind == "" {
		errorKind = "none"
	}
	client := "real"
	if simulated {
		client = "demo"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PlatformResultsTotal,
			1,
			map[string]string{
				"platform":   platform,
				"status":     status,
				"error_kind": errorKind,
				"client":     client,
			},
		)
		_ = observability.TelemetrySystem.Histogram(
			PlatformCallDuration,
			duration,
			map[string]string{"platform": platform},
		)
		if attempts > 0 {
			_ = observability.TelemetrySystem.Counter(
				PlatformAttemptsTotal,
				float64(attempts),
				map[string]string{"platform": platform},
			)
		}
	}
}

// RecordCitation records whether a platform cited the domain.
func RecordCitation(platform string, cited bool) {
	value := "false"
	if cited {
		value = "true"
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PlatformCitationsTotal,
			1,
			map[string]string{"platform": platform, "cited": value},
		)
	}
}

// RecordCircuitTransition records a circuit breaker state change.
func RecordCircuitTransition(platform string, from string, to string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CircuitTransitionsTotal,
			1,
			map[string]string{
				"platform": platform,
				"from":     from,
				"to":       to,
			},
		)
	}
}

// RecordRateLimitWait records a rate limiter wait.
func RecordRateLimitWait(platform string, wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitWaitsTotal,
			1,
			map[string]string{"platform": platform},
		)
		_ = observability.TelemetrySystem.Histogram(
			RateLimitWaitDuration,
			wait,
			map[string]string{"platform": platform},
		)
	}
}

// RecordDemoResponse records a simulated platform response.
func RecordDemoResponse(platform string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			DemoResponsesTotal,
			1,
			map[string]string{"platform": platform},
		)
	}
}
