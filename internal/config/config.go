package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// Authentication
	AdminAPIKey  string
	ReaperSecret string

	// Allocation configuration
	PendingGraceMinutes int
	ReaperBatchSize     int
	VoucherValidityDays int
	ServiceName         string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                getEnv("PORT", "8080"),
		Mode:                getEnv("GIN_MODE", "debug"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		BrevoAPIKey:         getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:      getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:       getEnv("BREVO_FROM_NAME", "Voucher Store"),
		AdminAPIKey:         getEnv("ADMIN_API_KEY", ""),
		ReaperSecret:        getEnv("REAPER_SECRET", ""),
		PendingGraceMinutes: getEnvInt("PENDING_GRACE_MINUTES", 5),
		ReaperBatchSize:     getEnvInt("REAPER_BATCH_SIZE", 100),
		VoucherValidityDays: getEnvInt("VOUCHER_VALIDITY_DAYS", 30),
		ServiceName:         getEnv("SERVICE_NAME", "Voucher Service"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
