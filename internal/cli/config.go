package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/merbau/myinvois/pkg/myinvois"
)

type Config struct {
	BaseURL      string // Required: API base URL, or the "sandbox"/"production" preset
	ClientID     string // Required: client credential issued on ERP registration
	ClientSecret string // Required
	TIN          string // Optional: act on behalf of this taxpayer (intermediary mode)

	Timeout         time.Duration // Optional: per-request timeout (default: 30s)
	RetryAttempts   int           // Optional: total submission attempts including the first (default: SDK policy)
	Cache           string        // Optional: token cache backend, "memory" or a redis:// URL (default: memory)
	CachePassphrase string        // Optional: encrypt cached tokens at rest
	JournalFile     string        // Optional: path to the submission journal database (default: ./myinvois.db)

	Env       string // Environment tag for logs (sandbox, production) (default: sandbox)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
	LogFile   string // Optional: rotate logs into this file instead of stderr
}

func LoadConfig() Config {
	return Config{
		BaseURL:         getEnvOrDefault("MYINVOIS_BASE_URL", "sandbox"),
		ClientID:        os.Getenv("MYINVOIS_CLIENT_ID"),
		ClientSecret:    os.Getenv("MYINVOIS_CLIENT_SECRET"),
		TIN:             os.Getenv("MYINVOIS_TIN"),
		Timeout:         getEnvDurationOrDefault("MYINVOIS_TIMEOUT", 30*time.Second),
		RetryAttempts:   getEnvIntOrDefault("MYINVOIS_RETRY_ATTEMPTS", 0),
		Cache:           getEnvOrDefault("MYINVOIS_CACHE", "memory"),
		CachePassphrase: os.Getenv("MYINVOIS_CACHE_PASSPHRASE"),
		JournalFile:     getEnvOrDefault("MYINVOIS_JOURNAL", "myinvois.db"),
		Env:             getEnvOrDefault("MYINVOIS_ENV", "sandbox"),
		LogLevel:        getEnvOrDefault("MYINVOIS_LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("MYINVOIS_LOG_FORMAT", "text"),
		LogFile:         os.Getenv("MYINVOIS_LOG_FILE"),
	}
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment.
// godotenv never overrides variables that are already set, so the real
// environment always wins over file contents. With an empty path the default
// .env is loaded when present and silently skipped when absent; an explicit
// path must exist.
func LoadEnvFile(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Validate reports every missing required key at once so an operator can fix
// the environment in a single pass.
func (c Config) Validate() error {
	var missing []string

	if c.BaseURL == "" {
		missing = append(missing, "MYINVOIS_BASE_URL")
	}
	if c.ClientID == "" {
		missing = append(missing, "MYINVOIS_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "MYINVOIS_CLIENT_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ResolvedBaseURL maps the "sandbox" and "production" presets onto the
// authority's environment URLs; anything else passes through untouched so a
// mock server address works for testing.
func (c Config) ResolvedBaseURL() string {
	switch strings.ToLower(c.BaseURL) {
	case "sandbox", "preprod":
		return myinvois.SandboxBaseURL
	case "production", "prod":
		return myinvois.ProductionBaseURL
	default:
		return c.BaseURL
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as a duration first (e.g. "1m30s", "45s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Fall back to plain integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
