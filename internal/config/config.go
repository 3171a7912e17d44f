package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all process-level configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// HTTP inbound surface
	ListenAddr string

	// Generation provider
	ProviderBaseURL string
	ProviderTimeout time.Duration

	// Tenant settings file
	TenantFile string

	// Pattern mining schedule (cron expression)
	MiningSchedule string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "souqchat"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "core"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ListenAddr: getEnv("SOUQCHAT_LISTEN_ADDR", ":8087"),

		ProviderBaseURL: getEnv("SOUQCHAT_PROVIDER_BASE_URL", ""),
		ProviderTimeout: getDuration("SOUQCHAT_PROVIDER_TIMEOUT", 20*time.Second),

		TenantFile: getEnv("SOUQCHAT_TENANT_FILE", "tenants.yaml"),

		MiningSchedule: getEnv("SOUQCHAT_MINING_SCHEDULE", "@every 1h"),

		LogFile:  getEnv("SOUQCHAT_LOG_FILE", "/tmp/souqchat.log"),
		LogLevel: parseLogLevel(getEnv("SOUQCHAT_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
