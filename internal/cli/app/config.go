package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BaseURL         string        // Required: backend API base, e.g. http://localhost:8090/api
	Timeout         time.Duration // Optional: per-request timeout (default: 10s)
	CredentialsFile string        // Optional: SQLite credentials database (default: ~/.invctl/credentials.db)
	RefreshBefore   time.Duration // Optional: refresh tokens expiring within this window (default: 30s)
	Env             string        // Environment (dev, staging, prod) (default: dev)
	LogLevel        string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat       string        // Log format (json, text) (default: text)
}

// LoadConfig reads configuration from the environment after loading a .env
// file from the working directory, if one exists. Variables already set in
// the environment win over the file.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	return Config{
		BaseURL:         os.Getenv("INVENTORY_BASE_URL"),
		Timeout:         getEnvDurationOrDefault("INVENTORY_TIMEOUT", 10*time.Second),
		CredentialsFile: getEnvOrDefault("INVENTORY_CREDENTIALS_FILE", defaultCredentialsFile()),
		RefreshBefore:   getEnvDurationOrDefault("INVENTORY_REFRESH_BEFORE", 30*time.Second),
		Env:             getEnvOrDefault("ENV", "dev"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
	}, nil
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".invctl", "credentials.db")
	}
	return filepath.Join(home, ".invctl", "credentials.db")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
