package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gsokit/gsoscope/internal/core/engine"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatReport renders one table per query followed by the summary.
func (f *TableFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var rendered string
	for _, agg := range report.Results {
		if agg == nil {
			continue
		}
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(fmt.Sprintf("%s: %s", agg.Domain, agg.Query))
		t.AppendHeader(table.Row{"Platform", "Position", "Score", "Status", "Notes"})

		for _, res := range agg.Platforms {
			t.AppendRow(table.Row{
				res.Platform.DisplayName(),
				positionCell(res),
				scoreCell(res),
				statusCell(res),
				notesCell(res),
			})
		}

		footer := "all platforms failed"
		if agg.OverallSuccess {
			footer = fmt.Sprintf("score %.2f", report.queryScore(agg))
		}
		t.AppendFooter(table.Row{"", "", "", footer, ""})
		rendered += t.Render() + "\n"
	}

	rendered += renderSections(reportSections(report.Summary), false)
	return rendered, nil
}

// FormatPlatforms renders the platform listing as a table.
func (f *TableFormatter) FormatPlatforms(platforms []engine.PlatformInfo) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Platform", "Enabled", "Weight", "Model", "Credentials", "Circuit", "Rate Limit"})
	for _, info := range platforms {
		t.AppendRow(table.Row{
			info.Name,
			yesNo(info.Enabled),
			fmt.Sprintf("%.2f", info.Weight),
			info.Model,
			credentialsCell(info),
			circuitCell(info),
			rateLimitCell(info),
		})
	}
	return t.Render(), nil
}
