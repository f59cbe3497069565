// Package config holds the nerplay configuration file format.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds nerplay configuration.
type Config struct {
	Model     string        `yaml:"model"`      // default model name
	ModelsDir string        `yaml:"models_dir"` // ONNX bundle install root
	RulesPath string        `yaml:"rules_path"` // optional rule table override
	HTMLOut   string        `yaml:"html_out"`   // default highlight view path
	History   HistoryConfig `yaml:"history"`
	Fetch     FetchConfig   `yaml:"fetch"`
}

type HistoryConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"` // sqlite database file
}

type FetchConfig struct {
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
	MaxRedirects   int    `yaml:"max_redirects"`
}

// Timeout returns the fetch timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// DefaultDir returns the per-user data directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nerplay"
	}
	return filepath.Join(home, ".nerplay")
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the
// default configuration and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// EnsureDir creates the directory that will hold path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func applyDefaults(cfg *Config) {
	if cfg.Model == "" {
		cfg.Model = "prose-en"
	}
	cfg.ModelsDir = ExpandHome(cfg.ModelsDir)
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = filepath.Join(DefaultDir(), "models")
	}
	cfg.RulesPath = ExpandHome(cfg.RulesPath)
	if cfg.HTMLOut == "" {
		cfg.HTMLOut = "ner_visualization.html"
	}
	cfg.History.Path = ExpandHome(cfg.History.Path)
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(DefaultDir(), "history.db")
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "nerplay/0.1 (+https://github.com/ai-mindset/ner-playground)"
	}
	if cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = 20
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = 2_000_000
	}
	if cfg.Fetch.MaxRedirects == 0 {
		cfg.Fetch.MaxRedirects = 5
	}
}

// ExpandHome substitutes a leading ~/ with the user's home directory.
// Load applies it to every path field; path overrides that reach the
// program another way, such as environment variables, need it too.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
