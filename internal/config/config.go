package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Record store
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// Cache
	CacheTTL        time.Duration
	CacheMaxEntries int
	PostgresURL     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// AFAS Profit GetConnector
	AFASBaseURL     string
	AFASToken       string
	AFASConnector   string
	AFASPageSize    int
	AFASConcurrency int
	AFASTimeout     time.Duration

	// Assistant
	GeminiAPIKey string
	GeminiModel  string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	RefreshSchedule string
	Timezone        string

	CategoryMappingsFile string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/afasrapport.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		CacheTTL:        getEnvDuration("CACHE_TTL", 15*time.Minute),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 64),
		PostgresURL:     getEnv("POSTGRES_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "afasrapport"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_records"),

		AFASBaseURL:     strings.TrimRight(getEnv("AFAS_BASE_URL", ""), "/"),
		AFASToken:       getEnv("AFAS_TOKEN", ""),
		AFASConnector:   getEnv("AFAS_CONNECTOR", "Financiele_mutaties"),
		AFASPageSize:    getEnvInt("AFAS_PAGE_SIZE", 1000),
		AFASConcurrency: getEnvInt("AFAS_CONCURRENCY", 4),
		AFASTimeout:     getEnvDuration("AFAS_TIMEOUT", 30*time.Second),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Overzicht"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 3 * * *"),
		Timezone:        getEnv("TIMEZONE", "Europe/Amsterdam"),

		CategoryMappingsFile: getEnv("CATEGORY_MAPPINGS_FILE", ""),
	}
}

// AFASEnabled reports whether records can be refreshed from AFAS.
func (c *Config) AFASEnabled() bool {
	return c.AFASBaseURL != "" && c.AFASToken != ""
}

// SheetsEnabled reports whether the Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file not readable: %s", c.SeedFile))
		}
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheMaxEntries))
	}

	if c.PostgresURL != "" {
		if u, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
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

	if (c.AFASBaseURL == "") != (c.AFASToken == "") {
		errors = append(errors, "AFAS_BASE_URL and AFAS_TOKEN must be set together")
	}
	if c.AFASBaseURL != "" {
		if u, err := url.Parse(c.AFASBaseURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			errors = append(errors, fmt.Sprintf("invalid AFAS base URL '%s': must be an http(s) URL", c.AFASBaseURL))
		}
	}
	if c.AFASConnector == "" {
		errors = append(errors, "AFAS connector name cannot be empty")
	}
	if c.AFASPageSize < 1 || c.AFASPageSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid AFAS page size %d: must be between 1 and 10000", c.AFASPageSize))
	}
	if c.AFASConcurrency < 1 || c.AFASConcurrency > 16 {
		errors = append(errors, fmt.Sprintf("invalid AFAS concurrency %d: must be between 1 and 16", c.AFASConcurrency))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		} else if c.GoogleServiceAccountJSON == "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid refresh schedule '%s': %v", c.RefreshSchedule, err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
