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
	if cfg.ServerURL != "http://localhost:8080" {
		t.Fatalf("ServerURL = %q, want http://localhost:8080", cfg.ServerURL)
	}
	if cfg.BotID != "bot" {
		t.Fatalf("BotID = %q, want bot", cfg.BotID)
	}
	if cfg.CycleEvery != 30*time.Second {
		t.Fatalf("CycleEvery = %v, want 30s", cfg.CycleEvery)
	}
}

func TestLoadBotOverrides(t *testing.T) {
	t.Setenv("SERVER_URL", "http://127.0.0.1:9000")
	t.Setenv("BOT_ID", "BotA")
	t.Setenv("SPEND_SC", "25")

	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	if cfg.ServerURL != "http://127.0.0.1:9000" {
		t.Fatalf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.BotID != "BotA" || cfg.SpendSC != 25 {
		t.Fatalf("unexpected bot config: %+v", cfg)
	}
}
