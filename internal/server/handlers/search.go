package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/core/engine"
	apperrors "github.com/gsokit/gsoscope/internal/errors"
	"github.com/gsokit/gsoscope/internal/metrics"
)

const maxSearchBody = 64 << 10

// Searcher runs queries and exposes per-platform state. *engine.SearchManager
// satisfies it.
type Searcher interface {
	SearchAll(ctx context.Context, req core.QueryRequest) (*core.AggregateResult, error)
	Status() []engine.PlatformStatus
}

// SearchRequest is the POST /v1/search body.
type SearchRequest struct {
	Domain    string `json:"domain"`
	Query     string `json:"query"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// SearchHandler serves the search API on top of one long-lived Searcher so
// limiter and breaker state persist across requests.
type SearchHandler struct {
	searcher Searcher
	cfg      *config.Config
	inflight atomic.Int64
}

// NewSearchHandler binds handlers to searcher. cfg supplies the
// configured view for GET /v1/platforms.
func NewSearchHandler(searcher Searcher, cfg *config.Config) *SearchHandler {
	return &SearchHandler{searcher: searcher, cfg: cfg}
}

// Search handles POST /v1/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxSearchBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		apperrors.RespondWithEnvelope(w, r,
			apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, err, "request body must be a JSON search request"))
		return
	}
	if body.TimeoutMS < 0 {
		apperrors.RespondWithEnvelope(w, r,
			apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, fmt.Errorf("%w: timeout_ms must not be negative", core.ErrInvalidRequest), "invalid search request"))
		return
	}

	metrics.SetInflightSearches(h.inflight.Add(1))
	defer func() { metrics.SetInflightSearches(h.inflight.Add(-1)) }()

	agg, err := h.searcher.SearchAll(r.Context(), core.QueryRequest{
		Domain:  body.Domain,
		Query:   body.Query,
		Timeout: time.Duration(body.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.FromSearchError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// PlatformsResponse is the GET /v1/platforms body.
type PlatformsResponse struct {
	Platforms []engine.PlatformInfo `json:"platforms"`
}

// Platforms handles GET /v1/platforms.
func (h *SearchHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	infos := engine.DescribePlatforms(h.cfg, h.searcher.Status())
	writeJSON(w, http.StatusOK, PlatformsResponse{Platforms: infos})
}
