package output

import (
	"gopkg.in/yaml.v3"

	"github.com/gsokit/gsoscope/internal/core/engine"
)

// YAMLFormatter renders results as YAML.
type YAMLFormatter struct{}

// FormatReport renders the report as YAML.
func (f *YAMLFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatPlatforms renders the platform listing as YAML.
func (f *YAMLFormatter) FormatPlatforms(platforms []engine.PlatformInfo) (string, error) {
	data, err := yaml.Marshal(platforms)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
