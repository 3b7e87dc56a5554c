// Package config loads application configuration from the environment.
package config

import (
	"os"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	DBPath        string
	PublicBaseURL string
	LogLevel      string

	// Admin surface
	AdminPassword  string
	AdminJWTSecret string
	AdminTokenTTL  time.Duration

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// CORS
	AllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		DBPath:        getEnv("DB_PATH", "./data/booking.db"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminTokenTTL:  getEnvAsDuration("ADMIN_TOKEN_TTL", 12*time.Hour),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Booking Engine"),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
