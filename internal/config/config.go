package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	LestariDBURL  string
	CORSOrigin    string
	MarkerSecret  string
	MarkerTTL     time.Duration
	Username      string
	Password      string
	PasswordHash  string
	CookieSecure  bool
	RelayAddr     string
	RelayURL      string
	// Relay ingest sources - empty means the source is disabled
	RelayRedisURL     string
	RelayRedisChannel string
	RelayAMQPURL      string
	RelayAMQPQueue    string
	// Export archive - empty endpoint disables archival
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:          getenv("API_ADDR", ":8787"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		LestariDBURL:  getenv("LESTARI_DATABASE_URL", ""),
		CORSOrigin:    getenv("CHATDESK_CORS_ORIGIN", "*"),
		MarkerSecret:  getenv("CHATDESK_AUTH_SECRET", "chatdesk-dev-secret"),
		MarkerTTL:     time.Duration(getenvInt("CHATDESK_AUTH_TTL_SECONDS", 28800)) * time.Second,
		Username:      getenv("DASHBOARD_USERNAME", ""),
		Password:      getenv("DASHBOARD_PASSWORD", ""),
		PasswordHash:  getenv("DASHBOARD_PASSWORD_HASH", ""),
		CookieSecure:  getenvInt("CHATDESK_COOKIE_SECURE", 0) != 0,
		RelayAddr:     getenv("RELAY_ADDR", ":4000"),
		RelayURL:      getenv("RELAY_URL", "ws://localhost:4000/ws"),
		RelayRedisURL:     getenv("RELAY_REDIS_URL", ""),
		RelayRedisChannel: getenv("RELAY_REDIS_CHANNEL", "chatdesk:new-message"),
		RelayAMQPURL:      getenv("RELAY_AMQP_URL", ""),
		RelayAMQPQueue:    getenv("RELAY_AMQP_QUEUE", "chatdesk.new-message"),
		ArchiveEndpoint:  getenv("EXPORT_ARCHIVE_ENDPOINT", ""),
		ArchiveAccessKey: getenv("EXPORT_ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey: getenv("EXPORT_ARCHIVE_SECRET_KEY", ""),
		ArchiveBucket:    getenv("EXPORT_ARCHIVE_BUCKET", "chatdesk-exports"),
		ArchiveUseSSL:    getenvInt("EXPORT_ARCHIVE_USE_SSL", 0) != 0,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
