package ailink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TraceEntry is one platform call written to the trace log.
type TraceEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Platform   string    `json:"platform"`
	Driver     string    `json:"driver,omitempty"`
	Model      string    `json:"model,omitempty"`
	Domain     string    `json:"domain"`
	Query      string    `json:"query"`
	Simulated  bool      `json:"simulated"`
	Position   int       `json:"position"`
	Citations  int       `json:"citations,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// Tracer appends platform calls to a writer as NDJSON. A nil Tracer
// discards entries.
type Tracer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewTracer traces to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// OpenTracer appends traces to the file at path.
func OpenTracer(path string) (*Tracer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- trace path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Tracer{w: f, closer: f}, nil
}

// Record writes one entry. Encoding and write failures are dropped.
func (t *Tracer) Record(entry TraceEntry) {
	if t == nil || t.w == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(data)
}

// Close closes the underlying file, if any.
func (t *Tracer) Close() error {
	if t == nil || t.closer == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closer.Close()
}
