package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	DatabaseURL      string
	LogLevel         string
	AnthropicAPIKey  string
	AnthropicModel   string
	NatsURL          string
	NatsToken        string
	DriveFolderID    string
	DriveAccessToken string
	APIToken         string
}

func Load() Config {
	return Config{
		Port:             envInt("GONGINTEL_PORT", 8600),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey:  envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   envStr("GONGINTEL_MODEL", "claude-sonnet-4-20250514"),
		NatsURL:          envStr("NATS_URL", ""),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DriveFolderID:    envStr("DRIVE_FOLDER_ID", ""),
		DriveAccessToken: envStr("DRIVE_ACCESS_TOKEN", ""),
		APIToken:         envStr("GONGINTEL_API_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
