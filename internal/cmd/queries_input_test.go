package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQueriesSkipsCommentsAndBlanks(t *testing.T) {
	queries, err := parseQueries(strings.NewReader("# header\nagence seo\n\n  best geo agency  \n#skip\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"agence seo", "best geo agency"}, queries)
}

func TestParseQueriesEmpty(t *testing.T) {
	_, err := parseQueries(strings.NewReader("# only comments\n\n"))
	require.Error(t, err)
}

func TestResolveQueriesMergesFlagsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("second\nfirst\nthird\n"), 0o600))

	queries, err := resolveQueries([]string{"first", " second ", ""}, path)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second", "third"}, queries)
}

func TestResolveQueriesRequiresOne(t *testing.T) {
	_, err := resolveQueries([]string{"  "}, "")
	require.Error(t, err)

	_, err = resolveQueries(nil, filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
