package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "prose-en" {
		t.Errorf("expected default model prose-en, got %q", cfg.Model)
	}
	if cfg.HTMLOut != "ner_visualization.html" {
		t.Errorf("unexpected default html output %q", cfg.HTMLOut)
	}
	if cfg.History.Disabled {
		t.Error("history should be enabled by default")
	}
	if cfg.Fetch.Timeout() != 20*time.Second {
		t.Errorf("unexpected default fetch timeout %v", cfg.Fetch.Timeout())
	}
	if cfg.Fetch.MaxRedirects != 5 {
		t.Errorf("unexpected default redirect cap %d", cfg.Fetch.MaxRedirects)
	}
}

func TestLoadAppliesOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `model: blank-en
html_out: out.html
history:
  disabled: true
fetch:
  timeout_seconds: 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "blank-en" || cfg.HTMLOut != "out.html" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.History.Disabled {
		t.Error("history override not applied")
	}
	if cfg.Fetch.Timeout() != 5*time.Second {
		t.Errorf("unexpected fetch timeout %v", cfg.Fetch.Timeout())
	}
	if cfg.Fetch.UserAgent == "" || cfg.ModelsDir == "" {
		t.Errorf("unset fields should fall back to defaults: %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	if got := ExpandHome("~/data/rules.yaml"); got != filepath.Join(home, "data", "rules.yaml") {
		t.Errorf("unexpected expansion %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute paths must pass through, got %q", got)
	}
}
