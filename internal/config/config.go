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
	// HTTP Server
	Port string

	// Snapshot persistence
	DataBackend  string
	SnapshotPath string
	SQLiteDBPath string

	// AMQP mirror pipeline (empty URL disables mirroring)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror destination
	GoogleSpreadsheetID string

	// Worker
	MirrorConcurrency int
	BackfillInterval  time.Duration

	// Statement cache
	StatementCacheTTL time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "file"),
		SnapshotPath: getEnv("SNAPSHOT_PATH", "./data/reservas.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/reservas.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "reservas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_bookings"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		MirrorConcurrency: getEnvInt("MIRROR_CONCURRENCY", 4),
		BackfillInterval:  getEnvDuration("BACKFILL_INTERVAL", 15*time.Minute),

		StatementCacheTTL: getEnvDuration("STATEMENT_CACHE_TTL", 30*time.Second),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "file", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "file" && c.SnapshotPath == "" {
		errors = append(errors, "snapshot path cannot be empty when using file backend")
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
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

	if c.MirrorConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid mirror concurrency %d: must be at least 1", c.MirrorConcurrency))
	} else if c.MirrorConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid mirror concurrency %d: must be at most 64", c.MirrorConcurrency))
	}

	if c.BackfillInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid backfill interval %v: must be at least 1 minute", c.BackfillInterval))
	} else if c.BackfillInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid backfill interval %v: must be at most 24 hours", c.BackfillInterval))
	}

	if c.StatementCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid statement cache TTL %v: must not be negative", c.StatementCacheTTL))
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
