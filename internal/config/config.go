package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load env vars from .env file directly
func init() {
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist (e.g. in production),
		// but we should log it just in case.
		// However, mostly we want to rely on environment variables being set.
		// If we are in local dev, this helps.
		log.Println("No .env file found or error loading it, using system environment variables")
	}
}

// GetAllowedOrigins returns a slice of allowed origins from the environment variable.
// It defaults to localhost:3000 if not set.
func GetAllowedOrigins() []string {
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr == "" {
		return []string{"http://localhost:3000"}
	}

	// Split by comma and trim spaces
	parts := strings.Split(originsStr, ",")
	var origins []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// StorageConfig selects and configures the blob store backend (C2).
type StorageConfig struct {
	Type      string // "local" or "s3"
	LocalRoot string
	AppURL    string

	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string
}

// GetStorageConfig reads blob-store settings from the environment.
// STORAGE_TYPE defaults to "local".
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:      getEnvDefault("STORAGE_TYPE", "local"),
		LocalRoot: getEnvDefault("STORAGE_LOCAL_ROOT", "./data"),
		AppURL:    getEnvDefault("APP_URL", "http://localhost:"+getEnvDefault("PORT", "8080")),

		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          os.Getenv("S3_REGION"),
		S3Bucket:          os.Getenv("S3_BUCKET_NAME"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicURL:       os.Getenv("S3_PUBLIC_URL"),
	}
}

// IsDevelopment reports whether the service should include stack traces
// in error responses (§7) and run with verbose console logging.
func IsDevelopment() bool {
	env := strings.ToLower(getEnvDefault("NODE_ENV", "development"))
	return env != "production"
}

// GetDatabaseURL returns the record-store connection string.
func GetDatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// GetPort returns the HTTP listen port.
func GetPort() string {
	return getEnvDefault("PORT", "8080")
}

// GetWorkerPoolSize returns the configured pipeline worker-pool bound.
// Defaults to the host's available parallelism when unset or invalid,
// per §5 "Scheduling model".
func GetWorkerPoolSize(defaultSize int) int {
	raw := os.Getenv("PIPELINE_WORKERS")
	if raw == "" {
		return defaultSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultSize
	}
	return n
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

