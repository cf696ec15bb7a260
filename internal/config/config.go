package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the signaling server.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string
	RedisURL       string

	JWTSecret      string
	JWTTTL         time.Duration
	AllowedOrigins []string

	// Room tokens
	TokenEntropy int

	// Sessions
	SessionIDLength    int
	SessionMaxAttempts int

	// Presence
	GuestMaxAge   time.Duration
	ActiveWindow  time.Duration
	SweepInterval time.Duration

	// Relay
	PullTimeout time.Duration
	MailboxTTL  time.Duration
}

// Load reads configuration from the environment. A .env.local or .env file
// is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:         getDuration("JWT_TTL", 24*time.Hour),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		TokenEntropy: getInt("TOKEN_ENTROPY", 8),

		SessionIDLength:    getInt("SESSION_ID_LENGTH", 255),
		SessionMaxAttempts: getInt("SESSION_MAX_ATTEMPTS", 10),

		GuestMaxAge:   getDuration("GUEST_MAX_AGE", 30*time.Second),
		ActiveWindow:  getDuration("ACTIVE_WINDOW", 30*time.Second),
		SweepInterval: getDuration("SWEEP_INTERVAL", 30*time.Second),

		PullTimeout: getDuration("PULL_TIMEOUT", 30*time.Second),
		MailboxTTL:  getDuration("MAILBOX_TTL", 5*time.Minute),
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == "change-me-in-production" {
			panic("JWT_SECRET must be set in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("30s") or a plain number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
