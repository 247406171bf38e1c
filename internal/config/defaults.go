package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/gsokit/gsoscope/internal/core"
)

const (
	defaultSearchTimeout   = 30 * time.Second
	defaultPlatformTimeout = 30 * time.Second
)

// platformDefaults mirrors the vendor defaults for each platform.
var platformDefaults = map[core.Platform]PlatformConfig{
	core.PlatformChatGPT: {
		Enabled:   true,
		Weight:    0.4,
		APIKeyEnv: "OPENAI_API_KEY",
		BaseURL:   "https://api.openai.com/v1",
		Model:     "gpt-4-turbo-preview",
		RateLimit: RateLimitConfig{Strategy: string(core.StrategySlidingWindow), Limit: 60, Window: time.Minute},
	},
	core.PlatformPerplexity: {
		Enabled:   true,
		Weight:    0.3,
		APIKeyEnv: "PERPLEXITY_API_KEY",
		BaseURL:   "https://api.perplexity.ai",
		Model:     "pplx-70b-online",
		RateLimit: RateLimitConfig{Strategy: string(core.StrategySlidingWindow), Limit: 50, Window: time.Minute},
	},
	core.PlatformGoogleAI: {
		Enabled:   true,
		Weight:    0.2,
		APIKeyEnv: "GOOGLE_AI_KEY",
		BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		Model:     "gemini-pro",
		RateLimit: RateLimitConfig{Strategy: string(core.StrategySlidingWindow), Limit: 60, Window: time.Minute},
	},
	core.PlatformClaude: {
		Enabled:   true,
		Weight:    0.1,
		APIKeyEnv: "ANTHROPIC_API_KEY",
		BaseURL:   "https://api.anthropic.com/v1",
		Model:     "claude-3-opus-20240229",
		RateLimit: RateLimitConfig{Strategy: string(core.StrategySlidingWindow), Limit: 40, Window: time.Minute},
	},
}

// DefaultPlatform returns the built-in configuration for p.
func DefaultPlatform(p core.Platform) PlatformConfig {
	pc := platformDefaults[p]
	pc.Timeout = defaultPlatformTimeout
	pc.Retry = RetryConfig{MaxRetries: 3, BaseDelayMS: 1000, CapDelayMS: 30000, Jitter: 0.1}
	pc.CircuitBreaker = CircuitBreakerConfig{FailureThreshold: 5, CoolDownMS: 60000}
	return pc
}

// Default returns a fully populated configuration without reading any
// file or environment.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Profile: "structured"},
		Metrics: MetricsConfig{Enabled: true, Port: 9090},
		Health:  HealthConfig{Enabled: true},
		Search: SearchConfig{
			Timeout: defaultSearchTimeout,
		},
		Platforms:       make(map[string]PlatformConfig, len(core.AllPlatforms)),
		RateLimitMargin: 1.0,
	}
	for _, p := range core.AllPlatforms {
		cfg.Platforms[string(p)] = DefaultPlatform(p)
	}
	return cfg
}

// SetDefaults registers default values on v. Every key is registered so
// that environment overrides resolve through AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	def := Default()

	// Server defaults
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout.String())
	v.SetDefault("server.idle_timeout", def.Server.IdleTimeout.String())
	v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout.String())

	// Logging defaults
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.profile", def.Logging.Profile)

	// Metrics defaults
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.port", def.Metrics.Port)

	// Health check defaults
	v.SetDefault("health.enabled", def.Health.Enabled)

	// Search defaults
	v.SetDefault("search.demo_mode", def.Search.DemoMode)
	v.SetDefault("search.timeout", def.Search.Timeout.String())
	v.SetDefault("search.demo_latency", "0s")
	v.SetDefault("search.prompts_dir", "")

	v.SetDefault("rate_limit_margin", def.RateLimitMargin)

	for _, p := range core.AllPlatforms {
		pc := def.Platforms[string(p)]
		prefix := "platforms." + string(p) + "."
		v.SetDefault(prefix+"enabled", pc.Enabled)
		v.SetDefault(prefix+"weight", pc.Weight)
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"api_key_env", pc.APIKeyEnv)
		v.SetDefault(prefix+"base_url", pc.BaseURL)
		v.SetDefault(prefix+"model", pc.Model)
		v.SetDefault(prefix+"timeout", pc.Timeout.String())

		v.SetDefault(prefix+"rate_limit.strategy", pc.RateLimit.Strategy)
		v.SetDefault(prefix+"rate_limit.limit", pc.RateLimit.Limit)
		v.SetDefault(prefix+"rate_limit.window", pc.RateLimit.Window.String())
		v.SetDefault(prefix+"rate_limit.burst", pc.RateLimit.Burst)
		v.SetDefault(prefix+"rate_limit.max_wait", "0s")

		v.SetDefault(prefix+"retry.max_retries", pc.Retry.MaxRetries)
		v.SetDefault(prefix+"retry.base_delay_ms", pc.Retry.BaseDelayMS)
		v.SetDefault(prefix+"retry.cap_delay_ms", pc.Retry.CapDelayMS)
		v.SetDefault(prefix+"retry.jitter", pc.Retry.Jitter)

		v.SetDefault(prefix+"circuit_breaker.failure_threshold", pc.CircuitBreaker.FailureThreshold)
		v.SetDefault(prefix+"circuit_breaker.cool_down_ms", pc.CircuitBreaker.CoolDownMS)
	}
}
