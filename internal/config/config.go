// Package config loads daemon settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the daemon's runtime settings.
type Config struct {
	// AgentURL is the websocket endpoint of the agent bridge.
	AgentURL string
	// ChatEndpoint is the agent's HTTP chat endpoint, carried inside
	// outbound request envelopes.
	ChatEndpoint string
	// Port is the local HTTP listen port.
	Port string
	// CharacterID is the character selected at startup.
	CharacterID string
	// SyncInterval is the period of the server state reconciliation.
	SyncInterval time.Duration
	// TurnTimeout expires assistant turns that stop streaming.
	TurnTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AgentURL:     getEnv("COMPANION_AGENT_URL", "ws://localhost:3001/ws"),
		ChatEndpoint: getEnv("COMPANION_CHAT_ENDPOINT", "http://localhost:3001/api/chat"),
		Port:         getEnv("PORT", "8080"),
		CharacterID:  getEnv("COMPANION_CHARACTER", "groovy"),
		SyncInterval: 10 * time.Second,
		TurnTimeout:  2 * time.Minute,
	}

	if v := os.Getenv("COMPANION_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse COMPANION_SYNC_INTERVAL: %w", err)
		}
		cfg.SyncInterval = d
	}
	if v := os.Getenv("COMPANION_TURN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse COMPANION_TURN_TIMEOUT: %w", err)
		}
		cfg.TurnTimeout = d
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
