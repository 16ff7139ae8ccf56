// Package config handles dominspect configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/dominspect/inspect"
)

// Config is the top-level dominspect configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Page    PageConfig    `yaml:"page"`
	Panel   PanelConfig   `yaml:"panel"`
	Persist PersistConfig `yaml:"persist"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	HTTP    HTTPConfig    `yaml:"http"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// BrowserConfig controls the Chrome connection.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Headless         bool     `yaml:"headless"`
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// PageConfig selects the page to inspect: navigate to a URL, or attach to
// an open page whose URL contains attach.
type PageConfig struct {
	URL    string `yaml:"url"`
	Attach string `yaml:"attach"`
}

// PanelConfig sets initial panel defaults used when no state has been
// persisted yet.
type PanelConfig struct {
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	SplitPosition  int    `yaml:"split_position"`
	HighlightMode  string `yaml:"highlight_mode"` // border | shade | both | none
	HighlightColor string `yaml:"highlight_color"`
}

// PersistConfig controls state persistence.
type PersistConfig struct {
	// Path is the SQLite database file. Empty keeps state in memory only.
	Path string `yaml:"path"`
	// Debounce coalesces rapid mutations into one write.
	Debounce time.Duration `yaml:"debounce"`
}

// SinkConfig defines an output backend for inspector events.
type SinkConfig struct {
	Type          string `yaml:"type"`           // stdout | webhook | sqlite
	URL           string `yaml:"url"`            // for webhook
	Path          string `yaml:"path"`           // for sqlite
	RetentionDays int    `yaml:"retention_days"` // for sqlite; 0 keeps everything
}

// HTTPConfig controls the control API listener.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// MCPConfig controls the MCP tool server.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields. Panel defaults come from the same
// values a fresh inspector state starts with.
func (c *Config) ApplyDefaults() {
	def := inspect.DefaultState()
	if c.Panel.Width <= 0 {
		c.Panel.Width = def.Size.Width
	}
	if c.Panel.Height <= 0 {
		c.Panel.Height = def.Size.Height
	}
	if c.Panel.SplitPosition <= 0 {
		c.Panel.SplitPosition = def.SplitPosition
	}
	if c.Panel.HighlightMode == "" {
		c.Panel.HighlightMode = string(def.Highlight.Mode)
	}
	if c.Panel.HighlightColor == "" {
		c.Panel.HighlightColor = def.Highlight.Color
	}
	if c.Persist.Debounce <= 0 {
		c.Persist.Debounce = 300 * time.Millisecond
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = "127.0.0.1:9223"
	}
}

// InitialState translates panel defaults into an inspector state for first
// run.
func (c *Config) InitialState() inspect.State {
	s := inspect.DefaultState()
	s.Size = inspect.Size{Width: c.Panel.Width, Height: c.Panel.Height}
	s.SplitPosition = c.Panel.SplitPosition
	s.Highlight.Mode = inspect.HighlightMode(c.Panel.HighlightMode)
	s.Highlight.Color = c.Panel.HighlightColor
	return s
}
