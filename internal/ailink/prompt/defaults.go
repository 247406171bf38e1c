package prompt

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		p, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, nil
}

// DefaultRegistry builds a registry from embedded prompts, then applies any
// prompt files found in overrideDir.
func DefaultRegistry(overrideDir string) (*InMemoryRegistry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(prompts)
	if err != nil {
		return nil, err
	}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		overrides, err := LoadFromDir(dir)
		if err != nil {
			return nil, err
		}
		reg.Override(overrides)
	}
	return reg, nil
}
