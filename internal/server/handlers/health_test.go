package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/core/engine"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, StatusHealthy, resp.Checks["ok"])
}

func TestHealthHandlerReportsDegradedAsOK(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("circuits", stubChecker{err: fmt.Errorf("claude open: %w", ErrDegraded)})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("circuits", stubChecker{err: errors.New("down")})

	rec := httptest.NewRecorder()
	manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	checks, ok := resp.Error.Details["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, StatusUnhealthy, checks["circuits"])
}

func TestLivenessIgnoresCheckers(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("circuits", stubChecker{err: errors.New("down")})

	rec := httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartupWaitsForMarkStarted(t *testing.T) {
	manager := NewHealthManager("dev")

	rec := httptest.NewRecorder()
	manager.StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/health/startup", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	manager.MarkStarted()
	rec = httptest.NewRecorder()
	manager.StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/health/startup", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDetermineOverallStatusTreatsTimeoutAsDegraded(t *testing.T) {
	manager := NewHealthManager("dev")
	assert.Equal(t, StatusDegraded, manager.determineOverallStatus(map[string]string{"circuits": StatusTimeout}))
}

type statusSearcher struct {
	states []core.CircuitState
}

func (s statusSearcher) SearchAll(context.Context, core.QueryRequest) (*core.AggregateResult, error) {
	return nil, errors.New("not used")
}

func (s statusSearcher) Status() []engine.PlatformStatus {
	out := make([]engine.PlatformStatus, len(s.states))
	for i, state := range s.states {
		p := core.AllPlatforms[i]
		out[i] = engine.PlatformStatus{Platform: p, Circuit: core.CircuitSnapshot{Platform: p, State: state}}
	}
	return out
}

func TestCircuitChecker(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, CircuitChecker(statusSearcher{states: []core.CircuitState{core.CircuitClosed, core.CircuitHalfOpen}}).CheckHealth(ctx))

	err := CircuitChecker(statusSearcher{states: []core.CircuitState{core.CircuitClosed, core.CircuitOpen}}).CheckHealth(ctx)
	require.ErrorIs(t, err, ErrDegraded)

	err = CircuitChecker(statusSearcher{states: []core.CircuitState{core.CircuitOpen, core.CircuitOpen}}).CheckHealth(ctx)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDegraded)

	require.Error(t, CircuitChecker(statusSearcher{}).CheckHealth(ctx))
}
