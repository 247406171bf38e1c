package ailink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type writerFunc func(p []byte)

func (f writerFunc) Write(p []byte) (int, error) {
	f(append([]byte(nil), p...))
	return len(p), nil
}

func decodeTrace(t *testing.T, line []byte) TraceEntry {
	t.Helper()
	var entry TraceEntry
	require.NoError(t, json.Unmarshal(line, &entry))
	return entry
}

func TestTracerAppendsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	tracer, err := OpenTracer(path)
	require.NoError(t, err)

	tracer.Record(TraceEntry{Platform: "claude", Domain: "seo-ia.lu", Query: "q", Position: 2})
	tracer.Record(TraceEntry{Platform: "chatgpt", Domain: "seo-ia.lu", Query: "q", ErrorKind: "timeout_error"})
	require.NoError(t, tracer.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck // test cleanup

	var entries []TraceEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entries = append(entries, decodeTrace(t, scanner.Bytes()))
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)
	require.Equal(t, "claude", entries[0].Platform)
	require.False(t, entries[0].Timestamp.IsZero())
	require.Equal(t, "timeout_error", entries[1].ErrorKind)
}

func TestNilTracerIsNoop(t *testing.T) {
	var tracer *Tracer
	tracer.Record(TraceEntry{Platform: "claude"})
	require.NoError(t, tracer.Close())
}
