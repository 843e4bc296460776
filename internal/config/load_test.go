package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("DATABASE_PATH", "/tmp/vm.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.Token != "secret" || cfg.Database.Path != "/tmp/vm.db" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Bot.Prefix != "!" || cfg.Rooms.APITimeout != 5*time.Second || cfg.Rooms.SweepSchedule != "@every 2m" {
		t.Fatalf("defaults not applied: %+v", cfg.Rooms)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("TOKEN", "")
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"bot": {"token": "file-token", "prefix": "?"},
		"rooms": {"api_timeout": "2s", "reap_grace": "1m"},
		"metrics": {"enabled": true}
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.Token != "file-token" || cfg.Bot.Prefix != "?" {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if cfg.Rooms.APITimeout != 2*time.Second || cfg.Rooms.ReapGrace != time.Minute {
		t.Errorf("rooms = %+v", cfg.Rooms)
	}
	if cfg.Rooms.LockTimeout != 10*time.Second {
		t.Errorf("unset key lost its default: %v", cfg.Rooms.LockTimeout)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9102" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "secret")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("TOKEN", "")
	if _, err := Load(""); err == nil {
		t.Fatal("expected missing token error")
	}
}
