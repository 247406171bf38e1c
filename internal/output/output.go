package output

import (
	"fmt"
	"strings"

	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/core/engine"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// Formatter renders search reports and platform listings.
type Formatter interface {
	FormatReport(report *Report) (string, error)
	FormatPlatforms(platforms []engine.PlatformInfo) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatSearch builds a report from results and renders it.
func FormatSearch(format Format, weights Weights, results []*core.AggregateResult) (string, error) {
	return NewFormatter(format).FormatReport(NewReport(results, weights))
}
