package ailink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
	"github.com/gsokit/gsoscope/internal/ailink/prompt"
	"github.com/gsokit/gsoscope/internal/core"
)

// PlatformClient performs one query against one platform.
//
// Call returns a successful PlatformResult or a *core.PlatformError.
type PlatformClient interface {
	Platform() core.Platform
	Simulated() bool
	Call(ctx context.Context, query, domain string) (core.PlatformResult, error)
}

// Client is the real, driver-backed PlatformClient.
type Client struct {
	platform core.Platform
	driver   driver.Driver
	model    string
	prompt   *prompt.Prompt

	Clock  func() time.Time
	Tracer *Tracer
}

var _ PlatformClient = (*Client)(nil)

// NewClient binds a driver and prompt to a platform.
func NewClient(platform core.Platform, drv driver.Driver, model string, p *prompt.Prompt) *Client {
	return &Client{
		platform: platform,
		driver:   drv,
		model:    strings.TrimSpace(model),
		prompt:   p,
	}
}

func (c *Client) Platform() core.Platform { return c.platform }

func (c *Client) Simulated() bool { return false }

// Call renders the platform prompt, sends it, and scores the answer.
func (c *Client) Call(ctx context.Context, query, domain string) (core.PlatformResult, error) {
	start := c.now()
	res, citations, err := c.call(ctx, query, domain)

	entry := TraceEntry{
		Timestamp:  start,
		Platform:   string(c.platform),
		Model:      c.model,
		Domain:     domain,
		Query:      query,
		Citations:  citations,
		DurationMs: c.now().Sub(start).Milliseconds(),
	}
	if c.driver != nil {
		entry.Driver = c.driver.Name()
	}
	if err != nil {
		entry.ErrorKind = string(core.KindOf(err))
		entry.Error = err.Error()
	} else if res.Position != nil {
		entry.Position = *res.Position
	}
	c.Tracer.Record(entry)

	return res, err
}

func (c *Client) call(ctx context.Context, query, domain string) (core.PlatformResult, int, error) {
	if c.driver == nil {
		return core.PlatformResult{}, 0, core.NewPlatformError(c.platform, core.ErrorPermanent, "no driver configured")
	}
	if c.prompt == nil {
		return core.PlatformResult{}, 0, core.NewPlatformError(c.platform, core.ErrorPermanent, "no prompt configured")
	}

	system, user, err := c.prompt.Render(prompt.Vars{Query: query, Domain: domain})
	if err != nil {
		return core.PlatformResult{}, 0, &core.PlatformError{Kind: core.ErrorPermanent, Platform: c.platform, Message: "render prompt", Err: err}
	}

	resp, err := c.driver.Complete(ctx, &driver.Request{
		Model:       c.model,
		System:      system,
		Prompt:      user,
		Temperature: c.prompt.Config.Temperature,
		MaxTokens:   c.prompt.Config.MaxTokens,
	})
	if err != nil {
		return core.PlatformResult{}, 0, mapProviderError(c.platform, err)
	}
	if resp == nil {
		return core.PlatformResult{}, 0, mapProviderError(c.platform, driver.Malformed(c.driver.Name(), fmt.Errorf("nil response")))
	}

	position := extractPosition(resp.Text, resp.Citations, domain)
	res := core.PlatformResult{
		Platform:  c.platform,
		Success:   true,
		Score:     core.FloatPtr(core.ScoreForPosition(c.platform, position)),
		Position:  core.IntPtr(position),
		Snippet:   snippet(resp.Text),
		Timestamp: c.now(),
		Model:     resp.Model,
	}
	if position > 0 {
		res.URL = "https://" + domain
	}
	return res, len(resp.Citations), nil
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}
