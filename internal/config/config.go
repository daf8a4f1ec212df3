package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moneta/internal/remote"
)

type Config struct {
	// Database
	DBPath string

	// Remote sync
	RemoteBackend string
	DriveFileName string

	// OAuth (drive remote)
	OAuthClientFile string
	OAuthTokenFile  string
	OAuthClientJSON string
	OAuthTokenJSON  string

	// Spreadsheet import
	SpreadsheetID string

	// AMQP change notifications (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sync worker
	SyncInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		DBPath: getEnv("MONETA_DB_PATH", "./data/moneta.db"),

		RemoteBackend: getEnv("REMOTE_BACKEND", "none"),
		DriveFileName: getEnv("DRIVE_FILE_NAME", "moneta-snapshot.json"),

		OAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		OAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		OAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		OAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		SpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneta"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_changes"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else {
		dir := filepath.Dir(c.DBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if !remote.Type(c.RemoteBackend).IsValid() {
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of [none drive memory]", c.RemoteBackend))
	}

	if c.RemoteBackend == remote.DriveRemote.String() {
		if c.DriveFileName == "" {
			errors = append(errors, "drive file name cannot be empty when using drive remote")
		}

		hasClientFile := c.OAuthClientFile != ""
		hasClientJSON := c.OAuthClientJSON != ""
		if !hasClientFile && !hasClientJSON {
			errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for drive remote")
		}

		hasTokenFile := c.OAuthTokenFile != ""
		hasTokenJSON := c.OAuthTokenJSON != ""
		if !hasTokenFile && !hasTokenJSON {
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for drive remote")
		}

		if hasClientFile {
			if _, err := os.Stat(c.OAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("OAuth client file does not exist: %s", c.OAuthClientFile))
			}
		}
		if hasTokenFile {
			if _, err := os.Stat(c.OAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("OAuth token file does not exist: %s", c.OAuthTokenFile))
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

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
