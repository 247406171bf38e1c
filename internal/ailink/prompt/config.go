package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	// Slug is the platform the prompt is sent to (chatgpt, perplexity, ...).
	Slug           string   `yaml:"slug" json:"slug"`
	Description    string   `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string   `yaml:"version,omitempty" json:"version,omitempty"`
	SystemTemplate string   `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string   `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens      int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// Vars are the values available to prompt templates.
type Vars struct {
	Query  string
	Domain string
}

// Prompt wraps a validated prompt configuration with its source and
// compiled templates.
type Prompt struct {
	Config Config
	Source string

	system *template.Template
	user   *template.Template
}

// Render executes the system and user templates.
func (p *Prompt) Render(vars Vars) (string, string, error) {
	if p == nil || p.user == nil {
		return "", "", fmt.Errorf("prompt not loaded")
	}

	var system string
	if p.system != nil {
		var buf bytes.Buffer
		if err := p.system.Execute(&buf, vars); err != nil {
			return "", "", fmt.Errorf("render %s system template: %w", p.Config.Slug, err)
		}
		system = buf.String()
	}

	var user bytes.Buffer
	if err := p.user.Execute(&user, vars); err != nil {
		return "", "", fmt.Errorf("render %s user template: %w", p.Config.Slug, err)
	}
	return system, user.String(), nil
}
