// Package appid holds the fixed identity of the gsoscope binary: its name,
// environment prefix, and config directory name.
package appid

import "strings"

// Identity describes how the binary names itself.
type Identity struct {
	BinaryName  string
	EnvPrefix   string
	ConfigName  string
	Description string
}

var identity = Identity{
	BinaryName:  "gsoscope",
	EnvPrefix:   "GSOSCOPE_",
	ConfigName:  "gsoscope",
	Description: "Measure how generative search platforms cite a domain",
}

// Get returns the application identity.
func Get() Identity {
	return identity
}

// Env returns the prefixed environment variable name for key.
func (i Identity) Env(key string) string {
	return i.EnvPrefix + strings.ToUpper(strings.TrimSpace(key))
}

// ViperPrefix returns EnvPrefix without the trailing underscore.
func (i Identity) ViperPrefix() string {
	return strings.TrimSuffix(i.EnvPrefix, "_")
}
