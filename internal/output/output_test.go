package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/core/engine"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("yml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func success(p core.Platform, position int, score float64, snippet string) core.PlatformResult {
	return core.PlatformResult{
		Platform:  p,
		Success:   true,
		Position:  core.IntPtr(position),
		Score:     core.FloatPtr(score),
		Snippet:   snippet,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func sampleResults() []*core.AggregateResult {
	timeout := core.ErrorResult(core.PlatformClaude, core.NewPlatformError(core.PlatformClaude, core.ErrorTimeout, "deadline"), time.Time{})
	return []*core.AggregateResult{
		{
			QueryID: "q1",
			Domain:  "seo-ia.lu",
			Query:   "agence seo luxembourg",
			Platforms: []core.PlatformResult{
				success(core.PlatformChatGPT, 1, 10, "seo-ia.lu | top pick"),
				success(core.PlatformPerplexity, 0, 0, ""),
				timeout,
			},
			OverallSuccess: true,
		},
		{
			QueryID: "q2",
			Domain:  "seo-ia.lu",
			Query:   "best geo agency",
			Platforms: []core.PlatformResult{
				success(core.PlatformChatGPT, 3, 6, "third"),
				success(core.PlatformPerplexity, 2, 8, "second"),
			},
			OverallSuccess: true,
		},
	}
}

var sampleWeights = Weights{
	core.PlatformChatGPT:    0.5,
	core.PlatformPerplexity: 0.3,
	core.PlatformClaude:     0.2,
}

func TestGlobalScore(t *testing.T) {
	require.InDelta(t, 7.4, GlobalScore(sampleResults(), sampleWeights), 0.001)
	require.Zero(t, GlobalScore(nil, sampleWeights))
	require.Zero(t, GlobalScore(sampleResults(), Weights{}))
}

func TestGlobalScoreCountsFailingPlatforms(t *testing.T) {
	results := []*core.AggregateResult{{
		Platforms: []core.PlatformResult{
			success(core.PlatformChatGPT, 1, 10, ""),
			core.ErrorResult(core.PlatformClaude, core.NewPlatformError(core.PlatformClaude, core.ErrorTransient, "bad gateway"), time.Time{}),
		},
	}}
	weights := Weights{core.PlatformChatGPT: 1, core.PlatformClaude: 1}
	require.InDelta(t, 5.0, GlobalScore(results, weights), 0.001)
}

func TestWeightsFromConfig(t *testing.T) {
	cfg := config.Default()
	weights := WeightsFromConfig(cfg)
	require.Len(t, weights, len(core.AllPlatforms))
	for _, p := range core.AllPlatforms {
		pc, _ := cfg.Platform(p)
		require.Equal(t, pc.Weight, weights[p])
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults(), sampleWeights)

	require.Equal(t, 2, s.Queries)
	require.Equal(t, 4, s.Tests)
	require.Equal(t, 1, s.Failures)
	require.Equal(t, 3, s.CitationsFound)
	require.InDelta(t, 75.0, s.CitationRate, 0.001)
	require.InDelta(t, 2.0, s.AveragePosition, 0.001)
	require.InDelta(t, 24.0, s.TotalScore, 0.001)
	require.InDelta(t, 40.0, s.MaxScore, 0.001)
	require.InDelta(t, 60.0, s.Visibility, 0.001)
	require.InDelta(t, 7.4, s.GlobalScore, 0.001)

	require.Len(t, s.Platforms, 3)
	require.Equal(t, core.PlatformChatGPT, s.Platforms[0].Platform)
	require.Equal(t, core.PlatformPerplexity, s.Platforms[1].Platform)
	require.Equal(t, core.PlatformClaude, s.Platforms[2].Platform)

	chatgpt := s.Platforms[0]
	require.Equal(t, 2, chatgpt.Citations)
	require.InDelta(t, 100.0, chatgpt.CitationRate, 0.001)
	require.InDelta(t, 2.0, chatgpt.AveragePosition, 0.001)
	require.InDelta(t, 16.0, chatgpt.TotalScore, 0.001)

	require.InDelta(t, 50.0, s.Platforms[1].CitationRate, 0.001)
	require.Equal(t, 0, s.Platforms[2].Tests)
	require.Equal(t, 1, s.Platforms[2].Failures)

	joined := strings.Join(s.Recommendations, "\n")
	require.Contains(t, joined, "ChatGPT: strong")
	require.Contains(t, joined, "Perplexity: moderate")
	require.Contains(t, joined, "Claude: no successful answers")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, sampleWeights)
	require.Zero(t, s.Tests)
	require.Zero(t, s.CitationRate)
	require.Zero(t, s.Visibility)
	require.Empty(t, s.Platforms)
	require.Empty(t, s.Recommendations)
}

func TestSummarizeFlagsLowPositions(t *testing.T) {
	results := []*core.AggregateResult{{
		Platforms: []core.PlatformResult{success(core.PlatformChatGPT, 5, 2, "")},
	}}
	s := Summarize(results, sampleWeights)
	require.Contains(t, strings.Join(s.Recommendations, "\n"), "below the top three")
}

func TestFormatSearchJSON(t *testing.T) {
	rendered, err := FormatSearch(FormatJSON, sampleWeights, sampleResults())
	require.NoError(t, err)

	var decoded struct {
		Results []core.AggregateResult `json:"results"`
		Summary Summary                `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded.Results, 2)
	require.Equal(t, "q1", decoded.Results[0].QueryID)
	require.InDelta(t, 7.4, decoded.Summary.GlobalScore, 0.001)
	require.Contains(t, rendered, "\"visibility_percentage\": 60")
}

func TestFormatSearchYAML(t *testing.T) {
	rendered, err := FormatSearch(FormatYAML, sampleWeights, sampleResults())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &decoded))
	require.Contains(t, decoded, "results")
	require.Contains(t, decoded, "summary")
	require.Contains(t, rendered, "query_id: q1")
}

func TestFormatSearchTable(t *testing.T) {
	rendered, err := FormatSearch(FormatTable, sampleWeights, sampleResults())
	require.NoError(t, err)
	require.Contains(t, rendered, "seo-ia.lu: agence seo luxembourg")
	require.Contains(t, rendered, "ChatGPT")
	require.Contains(t, rendered, "#1")
	require.Contains(t, rendered, "not cited")
	require.Contains(t, rendered, "timeout_error")
	require.Contains(t, rendered, "Summary:")
	require.Contains(t, rendered, "Global score: 7.40/10")
	require.Contains(t, rendered, "Recommendations:")
}

func TestFormatSearchMarkdown(t *testing.T) {
	rendered, err := FormatSearch(FormatMarkdown, sampleWeights, sampleResults())
	require.NoError(t, err)
	require.Contains(t, rendered, "## seo-ia.lu: agence seo luxembourg")
	require.Contains(t, rendered, "| Platform | Position | Score | Status | Notes |")
	require.Contains(t, rendered, "seo-ia.lu \\| top pick")
	require.Contains(t, rendered, "### Summary")
	require.Contains(t, rendered, "- Visibility: 60.00% (24/40)")
}

func TestFormatReportNil(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatJSON, FormatMarkdown, FormatYAML} {
		rendered, err := NewFormatter(format).FormatReport(nil)
		require.NoError(t, err)
		require.Empty(t, rendered)
	}
}

func TestNotesCellTruncates(t *testing.T) {
	res := success(core.PlatformChatGPT, 1, 10, strings.Repeat("word ", 40))
	notes := notesCell(res)
	require.True(t, strings.HasSuffix(notes, "..."))
	require.Len(t, []rune(notes), notesRunes+3)

	failed := core.ErrorResult(core.PlatformChatGPT, core.NewPlatformError(core.PlatformChatGPT, core.ErrorAuthentication, "bad key"), time.Time{})
	require.Contains(t, notesCell(failed), "bad key")
	require.Equal(t, "authentication_error", statusCell(failed))
}

func TestFormatPlatforms(t *testing.T) {
	cfg := config.Default()
	status := []engine.PlatformStatus{{
		Platform:  core.PlatformChatGPT,
		Simulated: true,
		RateLimit: &core.RateLimitState{Strategy: core.StrategySlidingWindow, Limit: 60, Window: time.Minute, RequestCount: 2},
		Circuit:   core.CircuitSnapshot{Platform: core.PlatformChatGPT, State: core.CircuitClosed},
	}}
	platforms := engine.DescribePlatforms(cfg, status)

	table, err := NewFormatter(FormatTable).FormatPlatforms(platforms)
	require.NoError(t, err)
	require.Contains(t, table, "ChatGPT")
	require.Contains(t, table, "CLOSED (demo)")
	require.Contains(t, table, "2/60 per 1m0s")

	md, err := NewFormatter(FormatMarkdown).FormatPlatforms(platforms)
	require.NoError(t, err)
	require.Contains(t, md, "| Google AI |")

	js, err := NewFormatter(FormatJSON).FormatPlatforms(platforms)
	require.NoError(t, err)
	var decoded []engine.PlatformInfo
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	require.Len(t, decoded, len(core.AllPlatforms))
	require.NotNil(t, decoded[0].Live)
	require.Nil(t, decoded[1].Live)
}
