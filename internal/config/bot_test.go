package config

import (
	"testing"
	"time"
)

func TestLoadBotDefaults(t *testing.T) {
	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	if cfg.WSURL != "ws://localhost:3000/ws" {
		t.Fatalf("WSURL = %q, want ws://localhost:3000/ws", cfg.WSURL)
	}
	if cfg.HeartbeatInterval != 15*time.Second {
		t.Fatalf("HeartbeatInterval = %v, want 15s", cfg.HeartbeatInterval)
	}
}

func TestLoadBotOverrides(t *testing.T) {
	t.Setenv("WS_URL", "ws://127.0.0.1:9000/ws")
	t.Setenv("BOT_SEED", "42")
	t.Setenv("BOT_SHOT_DELAY", "0s")

	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	if cfg.WSURL != "ws://127.0.0.1:9000/ws" {
		t.Fatalf("WSURL = %q", cfg.WSURL)
	}
	if cfg.Seed != 42 || cfg.ShotDelay != 0 {
		t.Fatalf("unexpected bot config: %+v", cfg)
	}
}
