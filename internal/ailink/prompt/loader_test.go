package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.Len(t, prompts, 4)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	for _, slug := range []string{"chatgpt", "perplexity", "google_ai", "claude"} {
		p, err := reg.Get(slug)
		require.NoError(t, err, slug)
		require.NotNil(t, p.Config.Temperature, slug)
		require.Equal(t, 500, p.Config.MaxTokens, slug)
	}
}

func TestRenderSubstitutesQuery(t *testing.T) {
	reg, err := DefaultRegistry("")
	require.NoError(t, err)

	p, err := reg.Get("chatgpt")
	require.NoError(t, err)

	system, user, err := p.Render(Vars{Query: "agence SEO Luxembourg", Domain: "seo-ia.lu"})
	require.NoError(t, err)
	require.Contains(t, system, "cites your sources")
	require.Contains(t, user, `"agence SEO Luxembourg"`)

	p, err = reg.Get("perplexity")
	require.NoError(t, err)
	system, _, err = p.Render(Vars{Query: "q"})
	require.NoError(t, err)
	require.Empty(t, system)
}

func TestLoadRejectsInvalidPrompts(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no slug":      "---\ndescription: x\n---\nAsk {{ .Query }}",
		"no query":     "---\nslug: claude\n---\nAsk something",
		"bad template": "---\nslug: claude\n---\nAsk {{ .Query",
		"unterminated": "---\nslug: claude\nAsk {{ .Query }}",
		"temperature":  "---\nslug: claude\ntemperature: 3\n---\nAsk {{ .Query }}",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(name, []byte(data))
			require.Error(t, err)
		})
	}
}

func TestDefaultRegistryAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	body := "---\nslug: Claude\n---\nWho ranks for {{ .Query }} next to {{ .Domain }}?"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claude.md"), []byte(body), 0o600))

	reg, err := DefaultRegistry(dir)
	require.NoError(t, err)

	p, err := reg.Get("claude")
	require.NoError(t, err)
	_, user, err := p.Render(Vars{Query: "seo", Domain: "seo-ia.lu"})
	require.NoError(t, err)
	require.Equal(t, "Who ranks for seo next to seo-ia.lu?", user)
	require.Len(t, reg.List(), 4)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	a, err := Load("a", []byte("---\nslug: claude\n---\n{{ .Query }}"))
	require.NoError(t, err)
	b, err := Load("b", []byte("---\nslug: claude\n---\n{{ .Query }}"))
	require.NoError(t, err)

	_, err = NewRegistry([]*Prompt{a, b})
	require.Error(t, err)
}
