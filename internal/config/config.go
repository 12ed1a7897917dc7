package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Checkout expiry policies
const (
	ExpiryPolicyIgnore = "ignore"
	ExpiryPolicyRevert = "revert"
	ExpiryPolicyCancel = "cancel"
)

// DefaultMaxTxRetries is the number of attempts a transaction gets when DATABASE_MAX_TX_RETRIES is unset
const DefaultMaxTxRetries = 3

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Booking lifecycle configuration
	Booking BookingConfig

	// Redis configuration
	Redis RedisConfig

	// CORS configuration
	CORS CORSConfig

	// Metrics configuration
	Metrics MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string // development, staging, production
	LogLevel        string // debug, info, warn, error
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
	MaxTxRetries       int
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
	CookieName        string
}

// PaymentConfig holds Stripe configuration
type PaymentConfig struct {
	SecretKey     string // Stripe secret API key (SECRET - never expose to client)
	WebhookSecret string // Stripe endpoint signing secret (whsec_...)
	APIURL        string // optional override, e.g. stripe-mock
	Currency      string
	AppBaseURL    string // used for checkout success/cancel redirects
	Timeout       time.Duration
}

// BookingConfig holds booking lifecycle configuration
type BookingConfig struct {
	ExpiryPolicy       string // ignore, revert or cancel
	CompletionSchedule string // robfig/cron spec with seconds
	Location           *time.Location
}

// RedisConfig holds optional Redis configuration; empty URL disables it
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled  bool
	Path     string
	User     string // basic auth for the scrape endpoint; both empty disables it
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	loc, err := time.LoadLocation(getEnv("BOOKING_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", false),
			MaxTxRetries:       getEnvAsInt("DATABASE_MAX_TX_RETRIES", DefaultMaxTxRetries),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			CookieName:        getEnv("JWT_COOKIE_NAME", "token"),
		},
		Payment: PaymentConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIURL:        getEnv("STRIPE_API_URL", ""),
			Currency:      strings.ToLower(getEnv("PAYMENT_CURRENCY", "thb")),
			AppBaseURL:    strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
			Timeout:       getEnvAsDuration("PAYMENT_TIMEOUT", 30*time.Second),
		},
		Booking: BookingConfig{
			ExpiryPolicy:       strings.ToLower(getEnv("BOOKING_EXPIRY_POLICY", ExpiryPolicyCancel)),
			CompletionSchedule: getEnv("BOOKING_COMPLETION_SCHEDULE", "0 */5 * * * *"),
			Location:           loc,
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			LockTTL: getEnvAsDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Metrics: MetricsConfig{
			Enabled:  getEnvAsBool("METRICS_ENABLED", true),
			Path:     getEnv("METRICS_PATH", "/metrics"),
			User:     getEnv("METRICS_USER", ""),
			Password: getEnv("METRICS_PASSWORD", ""),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Payment.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	switch c.Booking.ExpiryPolicy {
	case ExpiryPolicyIgnore, ExpiryPolicyRevert, ExpiryPolicyCancel:
	default:
		return fmt.Errorf("invalid BOOKING_EXPIRY_POLICY: %s (must be 'ignore', 'revert' or 'cancel')", c.Booking.ExpiryPolicy)
	}

	if c.Database.MaxTxRetries < 1 {
		return fmt.Errorf("DATABASE_MAX_TX_RETRIES must be at least 1")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
