package output

import (
	"encoding/json"

	"github.com/gsokit/gsoscope/internal/core/engine"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatReport renders the report as JSON.
func (f *JSONFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

// FormatPlatforms renders the platform listing as JSON.
func (f *JSONFormatter) FormatPlatforms(platforms []engine.PlatformInfo) (string, error) {
	return f.marshal(platforms)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
