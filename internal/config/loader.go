// Package config provides centralized configuration management for gsoscope.
// Values are layered by viper: built-in defaults, an optional YAML file, then
// environment variables with the application prefix.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// NewViper returns a viper instance with defaults and environment binding
// configured for envPrefix (for example GSOSCOPE). Nested keys map to
// environment variables with dots replaced by underscores, so
// GSOSCOPE_PLATFORMS_CLAUDE_ENABLED toggles platforms.claude.enabled.
func NewViper(envPrefix string) *viper.Viper {
	v := viper.New()
	Bind(v, envPrefix)
	return v
}

// Bind registers defaults and environment lookup on an existing viper instance.
func Bind(v *viper.Viper, envPrefix string) {
	if strings.TrimSpace(envPrefix) != "" {
		v.SetEnvPrefix(strings.TrimSuffix(envPrefix, "_"))
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load decodes and validates the configuration held by v. Validation
// failures are returned before any platform is contacted.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("viper instance is required")
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// Decode converts a raw settings map into a validated Config. Keys that are
// absent keep their built-in defaults.
func Decode(raw map[string]any) (*Config, error) {
	layered := viper.New()
	SetDefaults(layered)
	if err := layered.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(layered.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalizePlatformKeys(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// normalizePlatformKeys lower-cases map keys so file-provided names such as
// "Claude" line up with the platform identifiers.
func normalizePlatformKeys(cfg *Config) {
	if cfg == nil || len(cfg.Platforms) == 0 {
		return
	}
	normalized := make(map[string]PlatformConfig, len(cfg.Platforms))
	for name, pc := range cfg.Platforms {
		normalized[strings.ToLower(strings.TrimSpace(name))] = pc
	}
	cfg.Platforms = normalized
}
