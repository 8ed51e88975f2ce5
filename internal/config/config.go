package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string

	RecipientEmail string
	FromEmail      string
	FromName       string
	SendGridAPIKey string

	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration
	MinSubmissionGap     time.Duration

	CSRFTokenTTL time.Duration
	SessionTTL   time.Duration

	AllowedOrigins []string

	SecurityLogFile string
	LogRetention    time.Duration

	RequestRateLimit  int
	RequestRateWindow time.Duration

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func Load() *Config {
	cfg := &Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		RecipientEmail:       getEnv("MAIL_TO_ADDRESS", "contact@bumikarya.co.id"),
		FromEmail:            getEnv("MAIL_FROM_ADDRESS", "noreply@bumikarya.co.id"),
		FromName:             getEnv("MAIL_FROM_NAME", "ABI Contact Form"),
		SendGridAPIKey:       mustGetEnv("SENDGRID_API_KEY"),
		RateLimitMaxAttempts: getEnvInt("RATE_LIMIT_MAX_ATTEMPTS", 5),
		RateLimitWindow:      getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
		MinSubmissionGap:     getEnvDuration("RATE_LIMIT_MIN_TIME", 10*time.Second),
		CSRFTokenTTL:         getEnvDuration("CSRF_TOKEN_TTL", time.Hour),
		SessionTTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
		AllowedOrigins:       getEnvList("ALLOWED_ORIGINS", []string{"http://localhost", "https://bumikarya.co.id"}),
		SecurityLogFile:      getEnv("SECURITY_LOG_FILE", "logs/security.log"),
		LogRetention:         getEnvDuration("LOG_RETENTION", 90*24*time.Hour),
		RequestRateLimit:     getEnvInt("REQUEST_RATE_LIMIT", 100),
		RequestRateWindow:    getEnvDuration("REQUEST_RATE_WINDOW", time.Minute),
		PostgresUser:         getEnv("POSTGRES_USER", "contact"),
		PostgresPassword:     getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnv("POSTGRES_PORT", "5432"),
		PostgresDatabase:     getEnv("POSTGRES_DATABASE", "contact_api"),
		PostgresSSLMode:      getEnv("POSTGRES_SSL_MODE", "disable"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
	}

	return cfg
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic("Missing required environment variable: " + key)
	}
	return value
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
