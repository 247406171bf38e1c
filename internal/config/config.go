package config

import (
	"os"
	"strings"
	"time"

	"github.com/gsokit/gsoscope/internal/core"
)

// Config represents the complete application configuration. It is loaded
// once at startup and treated as read-only afterwards.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Health    HealthConfig              `mapstructure:"health"`
	Search    SearchConfig              `mapstructure:"search"`
	Platforms map[string]PlatformConfig `mapstructure:"platforms"`

	RateLimitMargin float64 `mapstructure:"rate_limit_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SearchConfig controls the multi-platform fan-out.
type SearchConfig struct {
	// DemoMode forces simulated responses for every platform.
	DemoMode bool `mapstructure:"demo_mode"`

	// Timeout is the global deadline for one query across all platforms.
	Timeout time.Duration `mapstructure:"timeout"`

	// DemoLatency adds simulated network latency to demo responses.
	DemoLatency time.Duration `mapstructure:"demo_latency"`

	// PromptsDir overrides the embedded prompt templates.
	PromptsDir string `mapstructure:"prompts_dir"`
}

// PlatformConfig holds per-platform settings.
type PlatformConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Weight is used by report scoring only.
	Weight    float64       `mapstructure:"weight"`
	APIKey    string        `mapstructure:"api_key"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`

	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// RateLimitConfig describes a platform request budget.
type RateLimitConfig struct {
	Strategy string        `mapstructure:"strategy"`
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
	// Burst is the token bucket capacity; zero means Limit.
	Burst int `mapstructure:"burst"`
	// MaxWait bounds how long an acquisition may block; zero waits indefinitely.
	MaxWait time.Duration `mapstructure:"max_wait"`
}

// RetryConfig describes exponential backoff for transient failures.
type RetryConfig struct {
	MaxRetries  int     `mapstructure:"max_retries"`
	BaseDelayMS int     `mapstructure:"base_delay_ms"`
	CapDelayMS  int     `mapstructure:"cap_delay_ms"`
	Jitter      float64 `mapstructure:"jitter"`
}

// BaseDelay returns the first backoff delay.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// CapDelay returns the upper bound for any single backoff delay.
func (r RetryConfig) CapDelay() time.Duration {
	return time.Duration(r.CapDelayMS) * time.Millisecond
}

// CircuitBreakerConfig describes when a platform is fast-failed.
type CircuitBreakerConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	CoolDownMS       int `mapstructure:"cool_down_ms"`
}

// CoolDown returns how long the circuit stays open before probing.
func (c CircuitBreakerConfig) CoolDown() time.Duration {
	return time.Duration(c.CoolDownMS) * time.Millisecond
}

// ResolveAPIKey returns the inline key, or the value of the configured env var.
func (p PlatformConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key
	}
	if env := strings.TrimSpace(p.APIKeyEnv); env != "" {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// HasCredentials reports whether an API key is available.
func (p PlatformConfig) HasCredentials() bool {
	return p.ResolveAPIKey() != ""
}

// Platform returns the configuration for p.
func (c *Config) Platform(p core.Platform) (PlatformConfig, bool) {
	if c == nil || c.Platforms == nil {
		return PlatformConfig{}, false
	}
	pc, ok := c.Platforms[string(p)]
	return pc, ok
}

// EnabledPlatforms returns enabled platforms in enumeration order.
func (c *Config) EnabledPlatforms() []core.Platform {
	out := make([]core.Platform, 0, len(core.AllPlatforms))
	for _, p := range core.AllPlatforms {
		if pc, ok := c.Platform(p); ok && pc.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// AnyCredentials reports whether at least one enabled platform has a key.
func (c *Config) AnyCredentials() bool {
	for _, p := range c.EnabledPlatforms() {
		if pc, _ := c.Platform(p); pc.HasCredentials() {
			return true
		}
	}
	return false
}

// OnlyPlatforms returns a copy of c with every platform outside keep disabled.
func (c *Config) OnlyPlatforms(keep []core.Platform) *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Platforms = make(map[string]PlatformConfig, len(c.Platforms))
	wanted := make(map[core.Platform]bool, len(keep))
	for _, p := range keep {
		wanted[p] = true
	}
	for name, pc := range c.Platforms {
		if !wanted[core.Platform(name)] {
			pc.Enabled = false
		}
		clone.Platforms[name] = pc
	}
	return &clone
}
