package output

import (
	"fmt"
	"strings"

	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/core/engine"
)

// bestScore is the score of a first-position citation.
const bestScore = 10

// Report bundles search results with their monitoring summary.
type Report struct {
	Results []*core.AggregateResult `json:"results" yaml:"results"`
	Summary Summary                 `json:"summary" yaml:"summary"`

	weights Weights
}

// Summary aggregates citation metrics across every query in a run.
type Summary struct {
	Queries         int             `json:"queries" yaml:"queries"`
	Tests           int             `json:"tests" yaml:"tests"`
	Failures        int             `json:"failures" yaml:"failures"`
	CitationsFound  int             `json:"citations_found" yaml:"citations_found"`
	CitationRate    float64         `json:"citation_rate" yaml:"citation_rate"`
	AveragePosition float64         `json:"average_position" yaml:"average_position"`
	TotalScore      float64         `json:"total_score" yaml:"total_score"`
	MaxScore        float64         `json:"max_score" yaml:"max_score"`
	Visibility      float64         `json:"visibility_percentage" yaml:"visibility_percentage"`
	GlobalScore     float64         `json:"global_score" yaml:"global_score"`
	Platforms       []PlatformStats `json:"platforms" yaml:"platforms"`
	Recommendations []string        `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// PlatformStats aggregates one platform across a run. Only successful
// answers count as tests.
type PlatformStats struct {
	Platform        core.Platform `json:"platform" yaml:"platform"`
	Tests           int           `json:"tests" yaml:"tests"`
	Failures        int           `json:"failures" yaml:"failures"`
	Citations       int           `json:"citations" yaml:"citations"`
	CitationRate    float64       `json:"citation_rate" yaml:"citation_rate"`
	AveragePosition float64       `json:"average_position" yaml:"average_position"`
	TotalScore      float64       `json:"total_score" yaml:"total_score"`
}

// NewReport summarizes results.
func NewReport(results []*core.AggregateResult, weights Weights) *Report {
	return &Report{Results: results, Summary: Summarize(results, weights), weights: weights}
}

func (r *Report) queryScore(agg *core.AggregateResult) float64 {
	return GlobalScore([]*core.AggregateResult{agg}, r.weights)
}

// Summarize computes run-wide and per-platform citation metrics.
func Summarize(results []*core.AggregateResult, weights Weights) Summary {
	var s Summary
	stats := make(map[core.Platform]*PlatformStats)
	positionSums := make(map[core.Platform]int)
	var positionSum int

	for _, agg := range results {
		if agg == nil {
			continue
		}
		s.Queries++
		for _, res := range agg.Platforms {
			ps := stats[res.Platform]
			if ps == nil {
				ps = &PlatformStats{Platform: res.Platform}
				stats[res.Platform] = ps
			}
			if !res.Success {
				ps.Failures++
				s.Failures++
				continue
			}
			ps.Tests++
			s.Tests++
			if res.Score != nil {
				ps.TotalScore += *res.Score
				s.TotalScore += *res.Score
			}
			if res.Cited() {
				ps.Citations++
				s.CitationsFound++
				positionSums[res.Platform] += *res.Position
				positionSum += *res.Position
			}
		}
	}

	s.MaxScore = float64(s.Tests * bestScore)
	if s.Tests > 0 {
		s.CitationRate = round2(100 * float64(s.CitationsFound) / float64(s.Tests))
		s.Visibility = round2(100 * s.TotalScore / s.MaxScore)
	}
	if s.CitationsFound > 0 {
		s.AveragePosition = round2(float64(positionSum) / float64(s.CitationsFound))
	}
	s.GlobalScore = GlobalScore(results, weights)

	for _, p := range core.AllPlatforms {
		ps := stats[p]
		if ps == nil {
			continue
		}
		if ps.Tests > 0 {
			ps.CitationRate = round2(100 * float64(ps.Citations) / float64(ps.Tests))
		}
		if ps.Citations > 0 {
			ps.AveragePosition = round2(float64(positionSums[p]) / float64(ps.Citations))
		}
		s.Platforms = append(s.Platforms, *ps)
	}
	s.Recommendations = recommendations(s)
	return s
}

func recommendations(s Summary) []string {
	var out []string
	for _, ps := range s.Platforms {
		if ps.Tests == 0 {
			out = append(out, fmt.Sprintf("%s: no successful answers (%d failed)", ps.Platform.DisplayName(), ps.Failures))
			continue
		}
		switch {
		case ps.CitationRate < 30:
			out = append(out, fmt.Sprintf("%s: low citation rate (%.0f%%), tailor content to this platform", ps.Platform.DisplayName(), ps.CitationRate))
		case ps.CitationRate < 60:
			out = append(out, fmt.Sprintf("%s: moderate citation rate (%.0f%%)", ps.Platform.DisplayName(), ps.CitationRate))
		default:
			out = append(out, fmt.Sprintf("%s: strong citation rate (%.0f%%)", ps.Platform.DisplayName(), ps.CitationRate))
		}
	}
	if s.AveragePosition > 3 {
		out = append(out, fmt.Sprintf("Average position %.2f: citations land below the top three", s.AveragePosition))
	}
	if s.Tests > 0 && s.CitationRate < 40 {
		out = append(out, "Overall visibility is low across platforms")
	}
	return out
}

// summaryLines renders the headline metrics.
func summaryLines(s Summary) []string {
	lines := []string{
		fmt.Sprintf("Global score: %.2f/%d", s.GlobalScore, bestScore),
		fmt.Sprintf("Visibility: %.2f%% (%.0f/%.0f)", s.Visibility, s.TotalScore, s.MaxScore),
		fmt.Sprintf("Citations: %d/%d (%.2f%%)", s.CitationsFound, s.Tests, s.CitationRate),
	}
	if s.CitationsFound > 0 {
		lines = append(lines, fmt.Sprintf("Average position: %.2f", s.AveragePosition))
	}
	if s.Failures > 0 {
		lines = append(lines, fmt.Sprintf("Failed calls: %d", s.Failures))
	}
	return lines
}

type section struct {
	Title string
	Lines []string
}

func reportSections(s Summary) []section {
	sections := []section{{Title: "Summary", Lines: summaryLines(s)}}
	if len(s.Recommendations) > 0 {
		sections = append(sections, section{Title: "Recommendations", Lines: s.Recommendations})
	}
	return sections
}

func renderSections(sections []section, markdown bool) string {
	var sb strings.Builder
	for _, sec := range sections {
		if markdown {
			sb.WriteString(fmt.Sprintf("\n### %s\n\n", sec.Title))
			for _, line := range sec.Lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", sec.Title))
		for _, line := range sec.Lines {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}
	return sb.String()
}

// cells shared by the table and markdown renderers

func positionCell(res core.PlatformResult) string {
	switch {
	case !res.Success:
		return "-"
	case res.Position == nil || *res.Position == 0:
		return "not cited"
	default:
		return fmt.Sprintf("#%d", *res.Position)
	}
}

func scoreCell(res core.PlatformResult) string {
	if res.Score == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *res.Score)
}

func statusCell(res core.PlatformResult) string {
	status := "ok"
	if !res.Success {
		status = "error"
		if res.ErrorKind != nil {
			status = string(*res.ErrorKind)
		}
	}
	if res.Simulated {
		status += " (demo)"
	}
	return status
}

const notesRunes = 60

func notesCell(res core.PlatformResult) string {
	text := res.Snippet
	if !res.Success {
		text = res.Error
	}
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > notesRunes {
		return string(runes[:notesRunes]) + "..."
	}
	return text
}

// platform listing cells

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func credentialsCell(info engine.PlatformInfo) string {
	switch {
	case info.HasCredentials:
		return "set"
	case info.APIKeyEnv != "":
		return "missing " + info.APIKeyEnv
	default:
		return "missing"
	}
}

func circuitCell(info engine.PlatformInfo) string {
	if info.Live == nil {
		return "-"
	}
	if info.Live.Simulated {
		return string(info.Live.Circuit.State) + " (demo)"
	}
	return string(info.Live.Circuit.State)
}

func rateLimitCell(info engine.PlatformInfo) string {
	if info.Live == nil || info.Live.RateLimit == nil {
		return "-"
	}
	rl := info.Live.RateLimit
	return fmt.Sprintf("%s %d/%d per %s", rl.Strategy, rl.RequestCount, rl.Limit, rl.Window)
}
