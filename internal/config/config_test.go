package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[game]
cards = 12
api-url = "http://localhost:8000"
api-timeout = "3s"
submit = true

[server]
listen = ":9090"
token-ttl = "24h"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Game.Cards == nil || *cfg.Game.Cards != 12 {
		t.Fatalf("unexpected cards %v", cfg.Game.Cards)
	}
	if cfg.Game.APITimeout == nil || cfg.Game.APITimeout.Duration != 3*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Game.APITimeout)
	}
	if cfg.Game.Seed != nil || cfg.Game.User != nil {
		t.Fatalf("unset keys must stay nil")
	}
	if cfg.Server.TokenTTL == nil || cfg.Server.TokenTTL.Duration != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.Server.TokenTTL)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level %v", cfg.Log.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
	if cfg.Game.Cards != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "[game]\nwords = 3\n",
		"bad duration": "[game]\napi-timeout = \"soon\"\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "nirdswipe", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "nirdswipe", "nirdswipe.db") {
		t.Fatalf("unexpected db path %s", got)
	}
	if got := DefaultServerDBPath(); got != filepath.Join("/data", "nirdswipe", "server.db") {
		t.Fatalf("unexpected server db path %s", got)
	}
	if got := DefaultLogPath(); !strings.HasPrefix(got, "/state") {
		t.Fatalf("unexpected log path %s", got)
	}
}
