package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer  string // Issuer claim for session tokens (default: codeai)
	BaseURL string // Public base URL used in verification links (default: http://localhost:8080)

	DatabaseFile string // Path to SQLite database file (default: ./codeai.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	// SMTP delivery settings. When SMTP_HOST is unset, outbound mail is
	// written to the log instead, which is what you want in dev.
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Model server settings.
	ModelBaseURL     string        // Ollama-compatible server (default: http://127.0.0.1:11434)
	ModelName        string        // Model used for generation (default: deepseek-coder:6.7b)
	ModelTimeout     time.Duration // Per-request generation timeout (default: 120s)
	ModelMaxTokens   int           // Response length cap in tokens (default: 1024)
	ModelTemperature float64       // Sampling temperature (default: 0.2, code wants low)

	SessionTTL           time.Duration // Absolute session lifetime (default: 12h)
	SessionIdleTimeout   time.Duration // Idle logout threshold (default: 30m)
	MFACodeTTL           time.Duration // One-time code lifetime (default: 10m)
	MFALockoutDuration   time.Duration // Lockout after repeated failures (default: 15m)
	VerifyTokenTTL       time.Duration // Verification link lifetime (default: 24h)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	// A .env file is a convenience for local development, absence is fine.
	_ = godotenv.Load()

	return Config{
		Issuer:  getEnvOrDefault("CODEAI_ISSUER", "codeai"),
		BaseURL: getEnvOrDefault("CODEAI_BASE_URL", "http://localhost:8080"),

		DatabaseFile: getEnvOrDefault("CODEAI_DATABASE_FILE", "codeai.db"),
		PepperFile:   getEnvOrDefault("CODEAI_PEPPER_FILE", "pepper"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", os.Getenv("SMTP_USERNAME")),

		ModelBaseURL:     getEnvOrDefault("MODEL_BASE_URL", "http://127.0.0.1:11434"),
		ModelName:        getEnvOrDefault("MODEL_NAME", "deepseek-coder:6.7b"),
		ModelTimeout:     getEnvDurationOrDefault("MODEL_TIMEOUT", 120*time.Second),
		ModelMaxTokens:   getEnvIntOrDefault("MODEL_MAX_TOKENS", 1024),
		ModelTemperature: getEnvFloatOrDefault("MODEL_TEMPERATURE", 0.2),

		SessionTTL:           getEnvDurationOrDefault("SESSION_TTL", 12*time.Hour),
		SessionIdleTimeout:   getEnvDurationOrDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		MFACodeTTL:           getEnvDurationOrDefault("MFA_CODE_TTL", 10*time.Minute),
		MFALockoutDuration:   getEnvDurationOrDefault("MFA_LOCKOUT_DURATION", 15*time.Minute),
		VerifyTokenTTL:       getEnvDurationOrDefault("VERIFY_TOKEN_TTL", 24*time.Hour),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
		return floatValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
