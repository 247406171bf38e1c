package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Load parses and compiles a prompt definition. The markdown body after the
// frontmatter is used as the user template when user_template is not set.
func Load(source string, data []byte) (*Prompt, error) {
	config, body, err := parseYAMLWithFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	if strings.TrimSpace(config.UserTemplate) == "" {
		config.UserTemplate = strings.TrimSpace(body)
	}
	config.Slug = strings.ToLower(strings.TrimSpace(config.Slug))

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}

	p := &Prompt{Config: config, Source: source}
	p.user, err = template.New(config.Slug + ".user").Option("missingkey=error").Parse(config.UserTemplate)
	if err != nil {
		return nil, fmt.Errorf("compile prompt %s: %w", source, err)
	}
	if strings.TrimSpace(config.SystemTemplate) != "" {
		p.system, err = template.New(config.Slug + ".system").Option("missingkey=error").Parse(config.SystemTemplate)
		if err != nil {
			return nil, fmt.Errorf("compile prompt %s: %w", source, err)
		}
	}
	return p, nil
}

// LoadFromDir reads all prompt files (.md with YAML frontmatter) from a directory.
func LoadFromDir(dir string) ([]*Prompt, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path) // #nosec G304 -- prompt directory is operator supplied
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		p, err := Load(path, data)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, nil
}

func parseYAMLWithFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)
	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case inFront && strings.TrimSpace(line) == "---":
			inFront = false
		case inFront:
			frontmatter = append(frontmatter, line)
		default:
			body = append(body, line)
		}
	}
	if err := lines.Err(); err != nil {
		return Config{}, "", err
	}
	if inFront {
		return Config{}, "", fmt.Errorf("unterminated frontmatter")
	}

	var cfg Config
	source := trimmed
	if headerSeen {
		source = []byte(strings.Join(frontmatter, "\n"))
	}
	if err := yaml.Unmarshal(source, &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	if !headerSeen {
		return cfg, "", nil
	}
	return cfg, strings.Join(body, "\n"), nil
}

func validateConfig(cfg Config) error {
	if cfg.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.TrimSpace(cfg.UserTemplate) == "" {
		return fmt.Errorf("user template is required")
	}
	if !strings.Contains(cfg.UserTemplate, ".Query") {
		return fmt.Errorf("user template must reference .Query")
	}
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if cfg.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}
	return nil
}
