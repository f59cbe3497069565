package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfigExpandsModelsDirFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("models_dir: ~/alt-models\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	oldCfgFile := cfgFile
	cfgFile = path
	defer func() {
		cfgFile = oldCfgFile
		viper.Reset()
	}()
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	want := filepath.Join(home, "alt-models")
	if cfg.ModelsDir != want {
		t.Fatalf("models_dir = %q, want expanded %q", cfg.ModelsDir, want)
	}
}

func TestLoadConfigExpandsModelsDirFromEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NERPLAY_MODELS_DIR", "~/env-models")

	defer viper.Reset()
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	want := filepath.Join(home, "env-models")
	if cfg.ModelsDir != want {
		t.Fatalf("models_dir = %q, want expanded %q", cfg.ModelsDir, want)
	}
}

func TestLoadConfigModelOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NERPLAY_MODEL", "blank-en")

	defer viper.Reset()
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Model != "blank-en" {
		t.Fatalf("model = %q, want the env override blank-en", cfg.Model)
	}
}
