package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm.yaml")
	data := []byte("engine: hardware\nhandles: 3\nlatency: 7\ncompression: zstd\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Hardware() || cfg.Handles != 3 || cfg.Latency != 7 || cfg.Compression != "zstd" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.KeyStreamBlocks != DefaultConfig().KeyStreamBlocks {
		t.Fatalf("unset keys should keep their defaults, got %d", cfg.KeyStreamBlocks)
	}
	if cfg.ConfigFile != path {
		t.Fatalf("ConfigFile = %q", cfg.ConfigFile)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BLOCKMODE_HANDLES", "12")
	t.Setenv("BLOCKMODE_LOG_LEVEL", "debug")
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Handles != 12 || cfg.LogLevel != "debug" {
		t.Fatalf("environment ignored: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Engine = "fpga" },
		func(c *Config) { c.Handles = 0 },
		func(c *Config) { c.Latency = -1 },
		func(c *Config) { c.ChunkSize = 8 },
		func(c *Config) { c.Compression = "lz4" },
	}
	for i, mutate := range cases {
		c := DefaultConfig()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected an error for a missing explicit file")
	}
}
