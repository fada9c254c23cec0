package config

import (
	"os"
	"strconv"
	"time"

	"evently/internal/database"
	"evently/internal/kv"
	"evently/internal/messaging"
	"evently/internal/search"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database      database.Config
	NATS          messaging.Config
	Redis         kv.Config
	Elasticsearch search.Config

	Booking BookingConfig
}

// BookingConfig holds the tunables of the reservation core. The defaults
// match the documented protocol: a 60 second fixed rate-limit window with
// 10 attempts, a 5 minute duplicate-request lock TTL as a crash safety net
// and a 30 second availability cache TTL.
type BookingConfig struct {
	RateLimitMax       int
	RateLimitWindow    time.Duration
	ReservationLockTTL time.Duration
	AvailabilityTTL    time.Duration
	AuthCacheTTL       time.Duration

	// Reconciliation sweep for bookings stuck in processing.
	StuckThreshold time.Duration
	SweepInterval  time.Duration

	// Max in-flight confirmation jobs per worker process.
	WorkerMaxInflight int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "evently"),
			Password:           getEnv("DB_PASSWORD", "evently"),
			DBName:             getEnv("DB_NAME", "evently"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "evently"),
			ClientID:  getEnv("NATS_CLIENT_ID", "evently-api"),
		},

		Redis: kv.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		Elasticsearch: search.Config{
			Enabled:    getEnv("ELASTICSEARCH_ENABLED", "false") == "true",
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Index:      getEnv("ELASTICSEARCH_INDEX", "events"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},

		Booking: BookingConfig{
			RateLimitMax:       getEnvInt("BOOKING_RATE_LIMIT_MAX", 10),
			RateLimitWindow:    time.Duration(getEnvInt("BOOKING_RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
			ReservationLockTTL: time.Duration(getEnvInt("BOOKING_LOCK_TTL_SEC", 300)) * time.Second,
			AvailabilityTTL:    time.Duration(getEnvInt("AVAILABILITY_CACHE_TTL_SEC", 30)) * time.Second,
			AuthCacheTTL:       time.Duration(getEnvInt("AUTH_CACHE_TTL_SEC", 600)) * time.Second,
			StuckThreshold:     time.Duration(getEnvInt("BOOKING_STUCK_THRESHOLD_SEC", 600)) * time.Second,
			SweepInterval:      time.Duration(getEnvInt("BOOKING_SWEEP_INTERVAL_SEC", 30)) * time.Second,
			WorkerMaxInflight:  getEnvInt("WORKER_MAX_INFLIGHT", 16),
		},
	}
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
