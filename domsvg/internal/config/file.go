// Package config handles domsvg configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level domsvg configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Capture CaptureConfig `yaml:"capture"`
	HTTP    HTTPConfig    `yaml:"http"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// CaptureConfig controls how pages are loaded and converted.
type CaptureConfig struct {
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	DecodeTimeout   time.Duration `yaml:"decode_timeout"`
	DefaultSelector string        `yaml:"default_selector"`
	AllowPrivate    bool          `yaml:"allow_private"` // skip the SSRF guard
}

// HTTPConfig controls the HTTP surface.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	MaxBody int64  `yaml:"max_body"`
}

// SinkConfig defines an output backend for finished snapshots.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Capture.NavigateTimeout <= 0 {
		c.Capture.NavigateTimeout = 30 * time.Second
	}
	if c.Capture.DecodeTimeout <= 0 {
		c.Capture.DecodeTimeout = 10 * time.Second
	}
	if c.Capture.DefaultSelector == "" {
		c.Capture.DefaultSelector = "body"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8088"
	}
	if c.HTTP.MaxBody <= 0 {
		c.HTTP.MaxBody = 64 << 10
	}
}

func (c *Config) validate() error {
	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.stealth: unknown mode %q", c.Browser.Stealth)
	}
	for _, t := range c.Browser.ResourceBlocking {
		switch t {
		case "images", "fonts", "media", "stylesheets":
		default:
			return fmt.Errorf("config: browser.resource_blocking: unknown type %q", t)
		}
	}
	for i, sk := range c.Sinks {
		switch sk.Type {
		case "stdout":
		case "webhook":
			if sk.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, sk.Type)
		}
	}
	return nil
}
