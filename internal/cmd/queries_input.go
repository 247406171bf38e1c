package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// resolveQueries merges --query values with the lines of --queries-file.
// Blank lines and lines starting with # are skipped. Duplicates keep their
// first position.
func resolveQueries(flagQueries []string, queriesFile string) ([]string, error) {
	queries := make([]string, 0, len(flagQueries))
	seen := make(map[string]bool)
	add := func(raw string) {
		q := strings.TrimSpace(raw)
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		queries = append(queries, q)
	}

	for _, q := range flagQueries {
		add(q)
	}

	if trimmed := strings.TrimSpace(queriesFile); trimmed != "" {
		fromFile, err := readQueriesFile(trimmed)
		if err != nil {
			return nil, err
		}
		for _, q := range fromFile {
			add(q)
		}
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("at least one query is required (--query or --queries-file)")
	}
	return queries, nil
}

func readQueriesFile(path string) ([]string, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path) // #nosec G304 -- path is operator supplied
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}
	return parseQueries(reader)
}

func parseQueries(reader io.Reader) ([]string, error) {
	queries := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		queries = append(queries, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries found")
	}
	return queries, nil
}
