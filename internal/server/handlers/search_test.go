package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsokit/gsoscope/internal/ailink"
	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/core/engine"
)

func demoHandler(t *testing.T) (*SearchHandler, *engine.SearchManager) {
	t.Helper()

	cfg := config.Default()
	cfg.Search.DemoMode = true
	set, err := ailink.NewClients(cfg, ailink.Options{})
	require.NoError(t, err)
	m, err := engine.NewSearchManager(cfg, set.Clients)
	require.NoError(t, err)
	return NewSearchHandler(m, cfg), m
}

func TestSearchReturnsAggregate(t *testing.T) {
	h, _ := demoHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/search",
		strings.NewReader(`{"domain":"SEO-IA.lu","query":"agence SEO Luxembourg","timeout_ms":2000}`))
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var agg core.AggregateResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&agg))
	assert.Equal(t, "seo-ia.lu", agg.Domain)
	assert.NotEmpty(t, agg.QueryID)
	assert.True(t, agg.OverallSuccess)
	require.Len(t, agg.Platforms, 4)
	for i, res := range agg.Platforms {
		assert.Equal(t, core.AllPlatforms[i], res.Platform)
		assert.True(t, res.Simulated)
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	h, m := demoHandler(t)

	for name, body := range map[string]string{
		"not json":         `domain=seo-ia.lu`,
		"unknown field":    `{"domain":"seo-ia.lu","query":"q","extra":1}`,
		"missing query":    `{"domain":"seo-ia.lu"}`,
		"bad domain":       `{"domain":"localhost","query":"q"}`,
		"negative timeout": `{"domain":"seo-ia.lu","query":"q","timeout_ms":-5}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Search(rec, httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"INVALID_INPUT"`)
		})
	}

	for _, st := range m.Status() {
		assert.Zero(t, st.RateLimit.RequestCount, "rejected requests must not reach %s", st.Platform)
	}
}

func TestPlatformsListsLiveState(t *testing.T) {
	h, _ := demoHandler(t)

	rec := httptest.NewRecorder()
	h.Platforms(rec, httptest.NewRequest(http.MethodGet, "/v1/platforms", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlatformsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Platforms, 4)
	assert.Equal(t, core.PlatformChatGPT, resp.Platforms[0].Platform)
	require.NotNil(t, resp.Platforms[0].Live)
	assert.True(t, resp.Platforms[0].Live.Simulated)
	assert.Equal(t, core.CircuitClosed, resp.Platforms[0].Live.Circuit.State)
}
