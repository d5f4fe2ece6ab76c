package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AgentURL != "ws://localhost:3001/ws" {
		t.Errorf("AgentURL = %q", cfg.AgentURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SyncInterval != 10*time.Second {
		t.Errorf("SyncInterval = %v", cfg.SyncInterval)
	}
	if cfg.TurnTimeout != 2*time.Minute {
		t.Errorf("TurnTimeout = %v", cfg.TurnTimeout)
	}
	if cfg.CharacterID != "groovy" {
		t.Errorf("CharacterID = %q", cfg.CharacterID)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMPANION_AGENT_URL", "wss://agent.example/ws")
	t.Setenv("COMPANION_SYNC_INTERVAL", "30s")
	t.Setenv("COMPANION_TURN_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AgentURL != "wss://agent.example/ws" {
		t.Errorf("AgentURL = %q", cfg.AgentURL)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("SyncInterval = %v", cfg.SyncInterval)
	}
	if cfg.TurnTimeout != 90*time.Second {
		t.Errorf("TurnTimeout = %v", cfg.TurnTimeout)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("COMPANION_SYNC_INTERVAL", "often")
	if _, err := Load(); err == nil {
		t.Error("Load() succeeded with an unparseable interval")
	}
}
