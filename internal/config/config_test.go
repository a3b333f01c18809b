package config

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateRejectsMissingPaths(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty library path", func(c *Config) { c.Library.Path = "" }},
		{"empty upload tmp path", func(c *Config) { c.Upload.TmpPath = "" }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateRejectsBadDispatcherWorkers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.DispatcherWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for zero dispatcher workers")
	}
}

func TestValidateRejectsPollIntervalNotBelowTimeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.Engine.PollInterval = 10 * time.Second
	cfg.Engine.RequestTimeout = 10 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error when poll interval >= request timeout")
	}
}

func TestLoadWithKoanfAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}
	if cfg.Server.DispatcherWorkers != 3 {
		t.Errorf("expected default dispatcher workers 3, got %d", cfg.Server.DispatcherWorkers)
	}
	if cfg.Engine.PollInterval != 250*time.Millisecond {
		t.Errorf("expected default poll interval 250ms, got %v", cfg.Engine.PollInterval)
	}
}

func TestLoadWithKoanfEnvOverridesDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("LIBRARY_PATH", "/custom/library")
	t.Setenv("WS_LISTEN_ADDR", ":1234")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}
	if cfg.Library.Path != "/custom/library" {
		t.Errorf("expected env override for library path, got %q", cfg.Library.Path)
	}
	if cfg.Server.ListenAddr != ":1234" {
		t.Errorf("expected env override for listen addr, got %q", cfg.Server.ListenAddr)
	}
}
