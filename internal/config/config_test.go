package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()): %v", err)
	}
	if cfg.Pipeline.BatchSize != 5 || cfg.Pipeline.TextBatchSize != 3 || cfg.Pipeline.ChunkSize != 500 {
		t.Errorf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Cache.Path != ".translation_cache" {
		t.Errorf("cache path = %q", cfg.Cache.Path)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subtrans.toml")
	body := `
[model]
tier = "large"
device = "cpu"

[pipeline]
batch_size = 2
validate = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.Tier != "large" || cfg.Model.Device != "cpu" {
		t.Errorf("model overlay mismatch: %+v", cfg.Model)
	}
	if cfg.Pipeline.BatchSize != 2 || !cfg.Pipeline.Validate {
		t.Errorf("pipeline overlay mismatch: %+v", cfg.Pipeline)
	}
	// 未覆盖字段保留缺省
	if cfg.Pipeline.ChunkSize != 500 || cfg.Model.ServerURL == "" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadUnknownKeyFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[model]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load: want error on unknown key")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Model.Tier = "huge" },
		func(c *Config) { c.Model.Device = "tpu" },
		func(c *Config) { c.Model.ServerURL = "ftp://x" },
		func(c *Config) { c.Logging.Level = "trace" },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("case %d: want validation error", i)
		}
	}
}

func TestExpandHome(t *testing.T) {
	cfg := Default()
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if strings.HasPrefix(cfg.Model.CacheDir, "~") {
		t.Errorf("cache dir not expanded: %q", cfg.Model.CacheDir)
	}
}
