package ailink

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gsokit/gsoscope/internal/core"
)

const snippetRunes = 200

// hostToken matches bare host names such as example.com or www.seo-ia.lu/path.
var hostToken = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*(\.[a-z0-9-]+)*\.[a-z]{2,}(/\S*)?$`)

// extractPosition returns the 1-based rank of domain in an answer, or 0 when
// the domain is not mentioned. Citations win over free text.
func extractPosition(text string, citations []string, domain string) int {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return 0
	}

	for i, citation := range citations {
		if strings.Contains(strings.ToLower(citation), domain) {
			return min(i+1, core.MaxPosition)
		}
	}

	lower := strings.ToLower(text)
	idx := strings.Index(lower, domain)
	if idx < 0 {
		return 0
	}

	sources := 0
	for _, token := range strings.Fields(lower[:idx]) {
		if isSourceToken(token) {
			sources++
		}
	}
	return min(sources+1, core.MaxPosition)
}

func isSourceToken(token string) bool {
	token = strings.Trim(token, "()[]<>\"'`*,;:!?.")
	if token == "" {
		return false
	}
	if strings.Contains(token, "http") || strings.HasPrefix(token, "www.") {
		return true
	}
	return hostToken.MatchString(token)
}

// snippet returns the first snippetRunes runes of text followed by "...".
func snippet(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= snippetRunes {
		return text + "..."
	}
	runes := []rune(text)
	return string(runes[:snippetRunes]) + "..."
}
