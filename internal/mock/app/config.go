package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AdminUsername       string        // Optional: seeded admin account (default: admin)
	AdminPassword       string        // Optional: admin password (generated and logged when empty)
	AccessTTL           time.Duration // Optional: access token lifetime (default: 15m)
	SeedServers         int           // Optional: number of demo servers to create (default: 0)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8090)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		AdminUsername:       getEnvOrDefault("MOCK_ADMIN_USERNAME", "admin"),
		AdminPassword:       os.Getenv("MOCK_ADMIN_PASSWORD"),
		AccessTTL:           getEnvDurationOrDefault("MOCK_ACCESS_TTL", 15*time.Minute),
		SeedServers:         getEnvIntOrDefault("MOCK_SEED_SERVERS", 0),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8090),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
