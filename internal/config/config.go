package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultWttrBaseURL     = "https://wttr.in"
	defaultRequestTimeout  = 10 * time.Second
	defaultBatchDelay      = 2 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds all service settings, populated from environment variables
// (optionally via a .env file).
type Config struct {
	DatabaseURL     string
	WttrBaseURL     string
	RequestTimeout  time.Duration
	BatchDelay      time.Duration
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	requestTimeout, err := durationEnv("REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	batchDelay, err := durationEnv("BATCH_DELAY", defaultBatchDelay)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		WttrBaseURL:     envOrDefault("WTTR_BASE_URL", defaultWttrBaseURL),
		RequestTimeout:  requestTimeout,
		BatchDelay:      batchDelay,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.WttrBaseURL == "" {
		return nil, errors.New("WTTR_BASE_URL must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv parses a duration environment variable. BATCH_DELAY may be
// zero (no courtesy pause); the other durations must be positive.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 || (d == 0 && key != "BATCH_DELAY") {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
