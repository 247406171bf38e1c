package metrics

import (
	"time"

	"github.com/gsokit/gsoscope/internal/observability"
)

// Application-level metrics
const (
	CommandsTotal       = "gso_commands_total"
	InflightSearches    = "gso_inflight_searches"
	HealthCheckTotal    = "gso_health_check_total"
	HealthCheckDuration = "gso_health_check_duration_ms"
	ServerStartTime     = "gso_server_start_time_seconds"
	ServerUptime        = "gso_server_uptime_seconds"
)

// RecordCommand records one CLI command run.
func RecordCommand(command string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CommandsTotal,
			1,
			map[string]string{
				"command": command,
				"status":  status,
			},
		)
	}
}

// SetInflightSearches sets the number of searches the API is serving.
func SetInflightSearches(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			InflightSearches,
			float64(count),
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, status string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{"check": checkName},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerUptime, float64(seconds), nil)
	}
}
