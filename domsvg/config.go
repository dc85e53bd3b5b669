package domsvg

import (
	"github.com/hazyhaar/snapkit/domsvg/internal/config"
)

// Config is the top-level domsvg configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// CaptureConfig controls page loading and conversion.
type CaptureConfig = config.CaptureConfig

// HTTPConfig controls the HTTP surface.
type HTTPConfig = config.HTTPConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}
