package engine

import (
	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
)

// PlatformInfo joins the configured view of a platform with its live state.
type PlatformInfo struct {
	Platform       core.Platform `json:"platform" yaml:"platform"`
	Name           string        `json:"name" yaml:"name"`
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	Weight         float64       `json:"weight" yaml:"weight"`
	Model          string        `json:"model" yaml:"model"`
	HasCredentials bool          `json:"has_credentials" yaml:"has_credentials"`
	APIKeyEnv      string        `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	// Live is nil for platforms the manager is not running.
	Live *PlatformStatus `json:"live,omitempty" yaml:"live,omitempty"`
}

// DescribePlatforms lists every known platform in enumeration order,
// attaching the matching entry of status when there is one.
func DescribePlatforms(cfg *config.Config, status []PlatformStatus) []PlatformInfo {
	live := make(map[core.Platform]PlatformStatus, len(status))
	for _, st := range status {
		live[st.Platform] = st
	}

	out := make([]PlatformInfo, 0, len(core.AllPlatforms))
	for _, p := range core.AllPlatforms {
		pc, _ := cfg.Platform(p)
		info := PlatformInfo{
			Platform:       p,
			Name:           p.DisplayName(),
			Enabled:        pc.Enabled,
			Weight:         pc.Weight,
			Model:          pc.Model,
			HasCredentials: pc.HasCredentials(),
			APIKeyEnv:      pc.APIKeyEnv,
		}
		if st, ok := live[p]; ok {
			info.Live = &st
		}
		out = append(out, info)
	}
	return out
}
