package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Fatalf("HTTPAddr = %q, want :3000", cfg.HTTPAddr)
	}
	if cfg.GracePeriod != time.Minute {
		t.Fatalf("GracePeriod = %v, want 1m", cfg.GracePeriod)
	}
	if cfg.InactivityTimeout != 2*time.Minute {
		t.Fatalf("InactivityTimeout = %v, want 2m", cfg.InactivityTimeout)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Fatalf("SweepInterval = %v, want 30s", cfg.SweepInterval)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Fatalf("SessionTimeout = %v, want 30m", cfg.SessionTimeout)
	}
	if cfg.TurnHistoryWindow != 5 {
		t.Fatalf("TurnHistoryWindow = %d, want 5", cfg.TurnHistoryWindow)
	}
	if cfg.FirstMover != "fixed" {
		t.Fatalf("FirstMover = %q, want fixed", cfg.FirstMover)
	}
	if cfg.IsProduction() {
		t.Fatal("expected development by default")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "5s")
	t.Setenv("TURN_HISTORY_WINDOW", "10")
	t.Setenv("APP_ENV", "production")
	t.Setenv("MATCH_PUSH_ENABLED", "true")
	t.Setenv("MATCH_PUSH_RETRY_BASE", "2s")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.GracePeriod != 5*time.Second {
		t.Fatalf("GracePeriod = %v, want 5s", cfg.GracePeriod)
	}
	if cfg.TurnHistoryWindow != 10 {
		t.Fatalf("TurnHistoryWindow = %d, want 10", cfg.TurnHistoryWindow)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
	if !cfg.MatchPushEnabled || cfg.MatchPushRetryBase != 2*time.Second {
		t.Fatalf("unexpected push config: %+v", cfg)
	}
}

func TestLoadServerRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT", "forever")

	if _, err := LoadServer(); err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadAppWrapsFieldErrors(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "soon")
	if _, err := LoadApp(); err == nil || !strings.HasPrefix(err.Error(), "server config:") {
		t.Fatalf("LoadApp() error = %v, want server config error", err)
	}
}

func TestLoadAppCombinesConcerns(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_ADDR", ":9000")
	cfg, err := LoadApp()
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Server.HTTPAddr != ":9000" {
		t.Fatalf("LoadApp() = %+v", cfg)
	}
}
