// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LockStrategy selects how the Booking Coordinator serializes conflict
// checks against concurrent writers.
type LockStrategy string

const (
	LockStrategySerializable LockStrategy = "serializable"
	LockStrategyAdvisory     LockStrategy = "advisory"
)

// Config holds application configuration for the scheduling & booking core.
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	DatabaseURL string

	DefaultSlotMinutes  int
	BookingLockStrategy LockStrategy

	VoiceRequestDeadline   time.Duration
	StaffRequestDeadline   time.Duration
	WebhookDispatchTimeout time.Duration

	RedisAddr             string
	RedisPassword         string
	RedisTLS              bool
	PracticeHoursCacheTTL time.Duration

	OutboxBatchSize int32
	OutboxInterval  time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	corsAllowedOrigins := []string{}
	if raw := strings.TrimSpace(getEnv("CORS_ALLOWED_ORIGINS", "")); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			corsAllowedOrigins = append(corsAllowedOrigins, origin)
		}
	}

	lockStrategy := LockStrategy(strings.ToLower(strings.TrimSpace(getEnv("BOOKING_LOCK_STRATEGY", string(LockStrategySerializable)))))
	if lockStrategy != LockStrategySerializable && lockStrategy != LockStrategyAdvisory {
		lockStrategy = LockStrategySerializable
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: corsAllowedOrigins,

		DatabaseURL: getEnv("DATABASE_URL", ""),

		DefaultSlotMinutes:  getEnvAsInt("DEFAULT_SLOT_MINUTES", 30),
		BookingLockStrategy: lockStrategy,

		VoiceRequestDeadline:   getEnvAsDuration("VOICE_REQUEST_DEADLINE_MS", 8000*time.Millisecond),
		StaffRequestDeadline:   getEnvAsDuration("STAFF_REQUEST_DEADLINE_MS", 30000*time.Millisecond),
		WebhookDispatchTimeout: getEnvAsDuration("WEBHOOK_DISPATCH_DEADLINE_MS", 10000*time.Millisecond),

		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisTLS:              getEnvAsBool("REDIS_TLS", false),
		PracticeHoursCacheTTL: getEnvAsDuration("PRACTICE_HOURS_CACHE_TTL", 5*time.Minute),

		OutboxBatchSize: int32(getEnvAsInt("OUTBOX_BATCH_SIZE", 25)),
		OutboxInterval:  getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration parses the env var as either a Go duration string
// ("5m") or a bare integer count of milliseconds (matching the
// voice/staff deadline env vars from spec.md). The bare-integer form is
// accepted for every key, not only those ending in _MS.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
