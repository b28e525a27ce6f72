package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Credential backends understood by the application factory.
const (
	CredentialsMemory = "memory"
	CredentialsFile   = "file"
	CredentialsSQLite = "sqlite"
)

// Config holds the settings read from the environment.
type Config struct {
	// Remote API
	APIBaseURL string
	APITimeout time.Duration

	// Credential persistence
	CredentialBackend string
	CredentialsFile   string
	SQLiteDBPath      string

	// AMQP mutation events (disabled when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Presentation
	CurrencyCode   string
	CurrencySymbol string

	// Analytics
	AnalyticsCacheTTL time.Duration

	LogLevel string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Fake backend
	FakeAPIPort      string
	FakeAPIJWTSecret string
	FakeAPITokenTTL  time.Duration
	FakeAPIHashCost  int
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	cfg := &Config{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080/api"),
		APITimeout: getEnvDuration("API_TIMEOUT", 15*time.Second),

		CredentialBackend: getEnv("CREDENTIAL_BACKEND", CredentialsFile),
		CredentialsFile:   getEnv("CREDENTIALS_FILE", defaultCredentialsFile()),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/expensectl.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		CurrencyCode:   getEnv("CURRENCY_CODE", "MAD"),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", ""),

		AnalyticsCacheTTL: getEnvDuration("ANALYTICS_CACHE_TTL", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		FakeAPIPort:      getEnv("FAKEAPI_PORT", "8080"),
		FakeAPIJWTSecret: getEnv("FAKEAPI_JWT_SECRET", "dev-secret-change-me"),
		FakeAPITokenTTL:  getEnvDuration("FAKEAPI_TOKEN_TTL", 24*time.Hour),
		FakeAPIHashCost:  getEnvInt("FAKEAPI_BCRYPT_COST", 10),
	}

	return cfg
}

// SheetsEnabled reports whether export to Google Sheets is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.APIBaseURL == "" {
		errors = append(errors, "API base URL cannot be empty")
	} else if u, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}

	if c.APITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
	} else if c.APITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at most 5 minutes", c.APITimeout))
	}

	validBackends := []string{CredentialsMemory, CredentialsFile, CredentialsSQLite}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.CredentialBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid credential backend '%s': must be one of %v", c.CredentialBackend, validBackends))
	}

	switch c.CredentialBackend {
	case CredentialsFile:
		if c.CredentialsFile == "" {
			errors = append(errors, "credentials file path cannot be empty when using file backend")
		} else if msg := ensureDir(c.CredentialsFile); msg != "" {
			errors = append(errors, msg)
		}
	case CredentialsSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CurrencyCode == "" {
		errors = append(errors, "currency code cannot be empty")
	} else if len(c.CurrencyCode) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency code '%s': must be a 3-letter ISO code", c.CurrencyCode))
	}

	if c.AnalyticsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid analytics cache TTL %v: must not be negative", c.AnalyticsCacheTTL))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleCredentialsFile != ""
		hasJSON := c.GoogleCredentialsJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateFakeAPI checks only the settings the fake backend reads.
func (c *Config) ValidateFakeAPI() error {
	var errors []string

	if port, err := strconv.Atoi(c.FakeAPIPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.FakeAPIPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if len(c.FakeAPIJWTSecret) < 8 {
		errors = append(errors, "JWT secret must be at least 8 characters")
	}
	if c.FakeAPITokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.FakeAPITokenTTL))
	}
	if c.FakeAPIHashCost < 4 || c.FakeAPIHashCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.FakeAPIHashCost))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Sprintf("cannot create directory '%s': %v", dir, err)
		}
	}
	return ""
}

func defaultCredentialsFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "expensectl", "credentials.json")
	}
	return "./data/credentials.json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
