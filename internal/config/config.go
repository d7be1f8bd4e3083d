// Package config provides environment configuration for the API server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSOrigins        []string

	// Database settings
	DatabaseURL string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Chat provider settings. The base URL and the per-method path secrets
	// together form credentials: they must never be logged in full.
	BitrixBaseURL            string
	BitrixUserGetSecret      string
	BitrixRecentListSecret   string
	BitrixDialogFetchSecret  string
	BitrixOpenLinesSecret    string
	ProviderTimeout          time.Duration
	ProviderRetryAttempts    int
	ProviderRetryBaseBackoff time.Duration

	// Classification heuristics (locale-specific, overridable)
	ActiveTitleMarker  string
	ResolutionKeywords []string
	GuestLabel         string

	// Reconciliation settings
	SyncInterval      time.Duration
	SyncWorkers       int
	MessageFetchLimit int
	OwnerPolicy       string

	// NATS settings (ticket event publishing; optional)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Owner attribution policies for conversations with multiple responsible
// operators.
const (
	OwnerPolicyFirst  = "first"
	OwnerPolicyLast   = "last"
	OwnerPolicyFanout = "fanout"
)

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		CORSOrigins:        getSliceEnv("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001", "http://localhost:8080"}),

		// Database
		DatabaseURL: databaseURL(),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 30*time.Minute),

		// Chat provider
		BitrixBaseURL:            getEnv("BITRIX_WEBHOOK_URL", ""),
		BitrixUserGetSecret:      getEnv("BITRIX_USER_GET_SECRET", ""),
		BitrixRecentListSecret:   getEnv("BITRIX_RECENT_LIST_SECRET", ""),
		BitrixDialogFetchSecret:  getEnv("BITRIX_DIALOG_FETCH_SECRET", ""),
		BitrixOpenLinesSecret:    getEnv("BITRIX_OPENLINES_SECRET", ""),
		ProviderTimeout:          getDurationEnv("PROVIDER_TIMEOUT", 10*time.Second),
		ProviderRetryAttempts:    getIntEnv("PROVIDER_RETRY_ATTEMPTS", 3),
		ProviderRetryBaseBackoff: getDurationEnv("PROVIDER_RETRY_BACKOFF", 250*time.Millisecond),

		// Heuristics
		ActiveTitleMarker:  getEnv("CHAT_ACTIVE_TITLE_MARKER", "открыт"),
		ResolutionKeywords: getSliceEnv("CHAT_RESOLUTION_KEYWORDS", []string{"решен", "закрыт"}),
		GuestLabel:         getEnv("CHAT_GUEST_LABEL", "Гость"),

		// Reconciliation
		SyncInterval:      getDurationEnv("SYNC_INTERVAL", 0),
		SyncWorkers:       getIntEnv("SYNC_WORKERS", 4),
		MessageFetchLimit: getIntEnv("MESSAGE_FETCH_LIMIT", 100),
		OwnerPolicy:       getEnv("OWNER_POLICY", OwnerPolicyFirst),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// databaseURL prefers DATABASE_URL and otherwise assembles a connection
// string from the discrete POSTGRES_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "password")
	host := getEnv("POSTGRES_HOST", "db")
	port := getEnv("POSTGRES_PORT", "5432")
	db := getEnv("POSTGRES_DB", "postgres")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, password, host, port, db)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
