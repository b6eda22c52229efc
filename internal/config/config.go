package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"trackitnow-backend/internal/logging"
)

type Config struct {
	// Listen ports, one per service
	ChatbotPort      string
	NotificationPort string
	GeolocationPort  string
	AllowedOrigins   []string
	LogLevel         string
	// Database (users, parcels, notifications)
	DatabaseURL string
	Migrate     bool
	// Redis backs session contexts and positions when set
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Chatbot
	SessionTTL      time.Duration
	IntentRulesFile string
	// Requests per minute per client IP on write endpoints; 0 disables the limiter
	RateLimitPerMinute int
	// Base URL of the notification service API, used by the notify client
	NotificationServiceURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		ChatbotPort:            getEnvDefault("CHATBOT_PORT", "8000"),
		NotificationPort:       getEnvDefault("NOTIFICATION_PORT", "8001"),
		GeolocationPort:        getEnvDefault("GEOLOCATION_PORT", "8002"),
		AllowedOrigins:         getEnvListDefault("ALLOWED_ORIGIN", []string{"*"}),
		LogLevel:               getEnvDefault("LOG_LEVEL", "info"),
		DatabaseURL:            os.Getenv("DB_URL"),
		Migrate:                getEnvBoolDefault("DB_MIGRATE", false),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                getEnvIntDefault("REDIS_DB", 0),
		SessionTTL:             getEnvDurationDefault("SESSION_TTL", 30*time.Minute),
		IntentRulesFile:        os.Getenv("INTENT_RULES_FILE"),
		RateLimitPerMinute:     getEnvIntDefault("RATE_LIMIT_PER_MINUTE", 120),
		NotificationServiceURL: getEnvDefault("NOTIFICATION_SERVICE_URL", "http://localhost:8001/api"),
	}
	return cfg
}

// Warn logs configuration gaps that leave a service on in-memory fallbacks.
func (c Config) Warn(logger zerolog.Logger) {
	if c.DatabaseURL == "" {
		logger.Warn().Msg("DB_URL is not set; users, parcels and notifications live in memory")
	}
	if c.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR is not set; session contexts and positions live in memory")
	}
}

// Logging returns the logger settings for the named service.
func (c Config) Logging(service string) logging.Config {
	return logging.Config{Level: c.LogLevel, Service: service}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
