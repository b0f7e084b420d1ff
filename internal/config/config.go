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

type Config struct {
	// Admin UI server
	Port            string
	APIBaseURL      string
	ColumnPrefsPath string

	// Backend API server
	APIPort      string
	SQLiteDBPath string

	// AMQP (optional; empty URL disables change events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets (optional; used by export and the audit worker)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// HTTP client talking to the backend API
	RequestTimeout time.Duration

	// Import fan-out
	ImportConcurrency int
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:5000"),
		ColumnPrefsPath: getEnv("COLUMN_PREFS_PATH", "./data/columns.json"),

		APIPort:      getEnv("API_PORT", "5000"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finadmin.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finadmin"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changes"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Audit"),

		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		ImportConcurrency: getEnvInt("IMPORT_CONCURRENCY", 8),
	}
}

// Validate checks the configuration, collecting every problem into one error.
func (c *Config) Validate() error {
	var errs []string

	for name, port := range map[string]string{"PORT": c.Port, "API_PORT": c.APIPort} {
		if p, err := strconv.Atoi(port); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s '%s': must be a number", name, port))
		} else if p < 1 || p > 65535 {
			errs = append(errs, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, p))
		}
	}

	if c.APIBaseURL == "" {
		errs = append(errs, "API base URL cannot be empty")
	} else if u, err := url.Parse(c.APIBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errs = append(errs, "Google sheet name cannot be empty when a spreadsheet ID is provided")
	}

	if c.RequestTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	if c.ImportConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("invalid import concurrency %d: must be at least 1", c.ImportConcurrency))
	} else if c.ImportConcurrency > 64 {
		errs = append(errs, fmt.Sprintf("invalid import concurrency %d: must be at most 64", c.ImportConcurrency))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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
