package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort       int
	DatabasePath     string
	JWTSecret        string
	TokenTTL         time.Duration
	SecureCookies    bool
	AllowBearerToken bool // accept "Authorization: Bearer" in addition to the token cookie
	AllowedOrigins   []string

	ElasticURL        string // empty disables analytics and index sync
	ElasticAPIKey     string
	IndexSyncSchedule string

	LogLevel string
}

// ErrMissingSecret is returned when JWT_SECRET is not set.
var ErrMissingSecret = errors.New("JWT_SECRET must be set")

// Load loads configuration from an optional .env file and environment variables, applying defaults.
func Load() (*Config, error) {
	// A missing .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, err
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "1h"))
	if err != nil {
		return nil, err
	}

	secure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", "true"))
	if err != nil {
		return nil, err
	}

	allowBearer, err := strconv.ParseBool(getEnv("AUTH_ALLOW_BEARER", "false"))
	if err != nil {
		return nil, err
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, ErrMissingSecret
	}

	return &Config{
		ServerPort:        port,
		DatabasePath:      getEnv("DATABASE_PATH", "./blog.db"),
		JWTSecret:         secret,
		TokenTTL:          ttl,
		SecureCookies:     secure,
		AllowBearerToken:  allowBearer,
		AllowedOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		ElasticURL:        getEnv("ELASTIC_URL", ""),
		ElasticAPIKey:     getEnv("ELASTIC_API_KEY", ""),
		IndexSyncSchedule: getEnv("INDEX_SYNC_SCHEDULE", "@every 5m"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
