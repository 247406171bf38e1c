package ailink

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/metrics"
)

// demoPositions are the simulated rank distributions per platform. Zero
// means the domain is not cited.
var demoPositions = map[core.Platform][]int{
	core.PlatformChatGPT:    {1, 2, 3, 4, 5, 0, 0},
	core.PlatformPerplexity: {1, 1, 2, 3, 4, 0},
	core.PlatformGoogleAI:   {1, 2, 2, 3, 0, 0},
	core.PlatformClaude:     {2, 3, 3, 4, 5, 0},
}

// DemoClient simulates a platform deterministically. The same domain, query
// and platform always produce the same result.
type DemoClient struct {
	platform core.Platform

	// Latency is waited before answering, honoring ctx.
	Latency time.Duration
	Clock   func() time.Time
	Tracer  *Tracer
}

var _ PlatformClient = (*DemoClient)(nil)

// NewDemoClient returns a simulated client for platform.
func NewDemoClient(platform core.Platform, latency time.Duration) *DemoClient {
	return &DemoClient{platform: platform, Latency: latency}
}

func (d *DemoClient) Platform() core.Platform { return d.platform }

func (d *DemoClient) Simulated() bool { return true }

// Call returns the simulated result, or a timeout error when ctx ends first.
func (d *DemoClient) Call(ctx context.Context, query, domain string) (core.PlatformResult, error) {
	start := d.now()
	if d.Latency > 0 {
		timer := time.NewTimer(d.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			err := &core.PlatformError{Kind: core.ErrorTimeout, Platform: d.platform, Message: "demo response cancelled", Err: ctx.Err()}
			d.trace(start, query, domain, 0, err)
			return core.PlatformResult{}, err
		case <-timer.C:
		}
	}

	position := DemoPosition(d.platform, domain, query)
	res := core.PlatformResult{
		Platform:  d.platform,
		Success:   true,
		Score:     core.FloatPtr(core.ScoreForPosition(d.platform, position)),
		Position:  core.IntPtr(position),
		Snippet:   demoSnippet(d.platform, position, query, domain),
		Timestamp: d.now(),
		Simulated: true,
		Model:     "demo",
	}
	if position > 0 {
		res.URL = "https://" + domain
	}

	metrics.RecordDemoResponse(string(d.platform))
	d.trace(start, query, domain, position, nil)
	return res, nil
}

// DemoPosition picks the simulated rank from the SHA-256 of the inputs.
func DemoPosition(platform core.Platform, domain, query string) int {
	choices, ok := demoPositions[platform]
	if !ok || len(choices) == 0 {
		return 0
	}
	sum := sha256.Sum256([]byte(domain + "|" + query + "|" + string(platform)))
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(choices))
	return choices[idx]
}

func demoSnippet(platform core.Platform, position int, query, domain string) string {
	if position == 0 {
		return fmt.Sprintf("%s answered about %s without citing %s", platform.DisplayName(), query, domain)
	}
	switch platform {
	case core.PlatformPerplexity:
		return fmt.Sprintf("[%d] Source cited for %s", position, query)
	case core.PlatformGoogleAI:
		return fmt.Sprintf("AI Overview: verified information on %s", query)
	case core.PlatformClaude:
		return fmt.Sprintf("From what I know about %s...", query)
	default:
		return fmt.Sprintf("Based on my sources, %s is a reference for %s", domain, query)
	}
}

func (d *DemoClient) trace(start time.Time, query, domain string, position int, err error) {
	if d.Tracer == nil {
		return
	}
	entry := TraceEntry{
		Timestamp:  start,
		Platform:   string(d.platform),
		Model:      "demo",
		Domain:     domain,
		Query:      query,
		Simulated:  true,
		Position:   position,
		DurationMs: d.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		entry.ErrorKind = string(core.KindOf(err))
		entry.Error = err.Error()
	}
	d.Tracer.Record(entry)
}

func (d *DemoClient) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}
