package ailink

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
	"github.com/gsokit/gsoscope/internal/ailink/driver/claude"
	"github.com/gsokit/gsoscope/internal/ailink/driver/gemini"
	"github.com/gsokit/gsoscope/internal/ailink/driver/openai"
	"github.com/gsokit/gsoscope/internal/ailink/driver/perplexity"
	"github.com/gsokit/gsoscope/internal/ailink/prompt"
	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
)

// Options tune client construction. The zero value is usable.
type Options struct {
	// HTTPClient is shared by every real driver.
	HTTPClient *http.Client
	// Prompts defaults to the embedded set plus search.prompts_dir.
	Prompts prompt.Registry
	Tracer  *Tracer
	Clock   func() time.Time
	Logger  *logging.Logger
}

// Mode tells which variant NewClients selected.
type Mode string

const (
	ModeReal Mode = "real"
	ModeDemo Mode = "demo"
	// ModeDegraded is demo mode chosen because no credential was found.
	ModeDegraded Mode = "degraded"
)

// ClientSet holds one client per enabled platform.
type ClientSet struct {
	Clients map[core.Platform]PlatformClient
	Mode    Mode
}

// Simulated reports whether every client in the set is a demo client.
func (s *ClientSet) Simulated() bool {
	return s != nil && s.Mode != ModeReal
}

// SelectMode applies the demo decision: forced demo, degraded demo when no
// enabled platform has a credential, real otherwise.
func SelectMode(cfg *config.Config) Mode {
	switch {
	case cfg.Search.DemoMode:
		return ModeDemo
	case !cfg.AnyCredentials():
		return ModeDegraded
	default:
		return ModeReal
	}
}

// NewClients builds a client per enabled platform. In real mode a platform
// without a key still gets a real client; its calls fail with an
// authentication error before reaching the network.
func NewClients(cfg *config.Config, opts Options) (*ClientSet, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	mode := SelectMode(cfg)
	if mode == ModeDegraded && opts.Logger != nil {
		opts.Logger.Warn("No platform credentials found, using demo responses")
	}

	set := &ClientSet{Clients: make(map[core.Platform]PlatformClient), Mode: mode}

	if mode != ModeReal {
		for _, p := range cfg.EnabledPlatforms() {
			demo := NewDemoClient(p, cfg.Search.DemoLatency)
			demo.Clock = opts.Clock
			demo.Tracer = opts.Tracer
			set.Clients[p] = demo
		}
		return set, nil
	}

	prompts := opts.Prompts
	if prompts == nil {
		reg, err := prompt.DefaultRegistry(cfg.Search.PromptsDir)
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
		prompts = reg
	}

	for _, p := range cfg.EnabledPlatforms() {
		pc, _ := cfg.Platform(p)
		drv, err := NewDriver(p, pc, opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		tmpl, err := prompts.Get(string(p))
		if err != nil {
			return nil, fmt.Errorf("prompt for %s: %w", p, err)
		}

		client := NewClient(p, drv, pc.Model, tmpl)
		client.Clock = opts.Clock
		client.Tracer = opts.Tracer
		set.Clients[p] = client

		if opts.Logger != nil && !pc.HasCredentials() {
			opts.Logger.Warn("Platform has no API key configured",
				zap.String("platform", string(p)),
				zap.String("api_key_env", pc.APIKeyEnv))
		}
	}
	return set, nil
}

// NewDriver returns the provider driver for platform.
func NewDriver(platform core.Platform, pc config.PlatformConfig, httpClient *http.Client) (driver.Driver, error) {
	key := pc.ResolveAPIKey()
	switch platform {
	case core.PlatformChatGPT:
		c := openai.NewClient(pc.BaseURL, key)
		c.HTTPClient, c.Timeout = httpClient, pc.Timeout
		return c, nil
	case core.PlatformPerplexity:
		c := perplexity.NewClient(pc.BaseURL, key)
		c.HTTPClient, c.Timeout = httpClient, pc.Timeout
		return c, nil
	case core.PlatformGoogleAI:
		c := gemini.NewClient(pc.BaseURL, key)
		c.HTTPClient, c.Timeout = httpClient, pc.Timeout
		return c, nil
	case core.PlatformClaude:
		c := claude.NewClient(pc.BaseURL, key)
		c.HTTPClient, c.Timeout = httpClient, pc.Timeout
		return c, nil
	default:
		return nil, fmt.Errorf("no driver for platform %q", platform)
	}
}
