package output

import (
	"fmt"
	"strings"

	"github.com/gsokit/gsoscope/internal/core/engine"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatReport renders one table per query followed by the summary.
func (f *MarkdownFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, agg := range report.Results {
		if agg == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s: %s\n\n", escapeMarkdownCell(agg.Domain), escapeMarkdownCell(agg.Query)))
		sb.WriteString("| Platform | Position | Score | Status | Notes |\n")
		sb.WriteString("|----------|----------|-------|--------|-------|\n")

		for _, res := range agg.Platforms {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				escapeMarkdownCell(res.Platform.DisplayName()),
				escapeMarkdownCell(positionCell(res)),
				escapeMarkdownCell(scoreCell(res)),
				escapeMarkdownCell(statusCell(res)),
				escapeMarkdownCell(notesCell(res)),
			))
		}

		if agg.OverallSuccess {
			sb.WriteString(fmt.Sprintf("\n**Score**: %.2f\n\n", report.queryScore(agg)))
		} else {
			sb.WriteString("\n**Score**: all platforms failed\n\n")
		}
	}

	sb.WriteString(renderSections(reportSections(report.Summary), true))
	return sb.String(), nil
}

// FormatPlatforms renders the platform listing as a markdown table.
func (f *MarkdownFormatter) FormatPlatforms(platforms []engine.PlatformInfo) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Platform | Enabled | Weight | Model | Credentials | Circuit | Rate Limit |\n")
	sb.WriteString("|----------|---------|--------|-------|-------------|---------|------------|\n")
	for _, info := range platforms {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s | %s | %s | %s |\n",
			escapeMarkdownCell(info.Name),
			yesNo(info.Enabled),
			info.Weight,
			escapeMarkdownCell(info.Model),
			escapeMarkdownCell(credentialsCell(info)),
			escapeMarkdownCell(circuitCell(info)),
			escapeMarkdownCell(rateLimitCell(info)),
		))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
