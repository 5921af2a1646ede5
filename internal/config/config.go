/**
 * Configuration for the KPI OCR service
 *
 * Loads configuration from environment variables, with .env loading
 * handled by the binaries.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds service configuration shared by the API server and worker.
type Config struct {
	// HTTP server
	Port string

	// PostgreSQL configuration
	DatabaseURL string

	// Storage backend: "postgres" or "memory"
	StoreBackend string

	// Redis configuration (queue + delta cache)
	RedisURL string

	// Image hosting collaborator (empty disables screenshot upload)
	ImageHostURL string

	// OCR configuration
	OCRLanguage  string
	OCRTimeoutMs int

	// Worker configuration
	WorkerConcurrency int
	JobTimeoutMs      int

	// Upload limits
	MaxImageSize int64

	// Delta cache / precompute
	DeltaCacheTTLSec int
	DeltaCronSpec    string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		StoreBackend:      getEnvOrDefault("STORE_BACKEND", "postgres"),
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		ImageHostURL:      getEnvOrDefault("IMAGE_HOST_URL", ""),
		OCRLanguage:       getEnvOrDefault("OCR_LANGUAGE", "eng"),
		OCRTimeoutMs:      getEnvAsIntOrDefault("OCR_TIMEOUT_MS", 30000),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		JobTimeoutMs:      getEnvAsIntOrDefault("JOB_TIMEOUT_MS", 120000),
		MaxImageSize:      getEnvAsInt64OrDefault("MAX_IMAGE_SIZE", 16*1024*1024),
		DeltaCacheTTLSec:  getEnvAsIntOrDefault("DELTA_CACHE_TTL_SEC", 300),
		DeltaCronSpec:     getEnvOrDefault("DELTA_CRON_SPEC", "0 23 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with STORE_BACKEND=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.StoreBackend)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.OCRTimeoutMs < 1000 {
		return fmt.Errorf("OCR_TIMEOUT_MS must be at least 1000, got %d", c.OCRTimeoutMs)
	}

	if c.MaxImageSize < 1024 || c.MaxImageSize > 128*1024*1024 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be between 1KB and 128MB, got %d", c.MaxImageSize)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
