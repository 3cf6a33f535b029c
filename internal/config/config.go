package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreBackendSheets = "sheets"
	StoreBackendMemory = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Sheets SheetsConfig
	Mongo  MongoConfig
	Notify NotifyConfig
	Jobs   JobsConfig
	Clock  ClockConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend string
}

// SheetsConfig contains configuration required to interact with Google
// Sheets, where the unit ledger lives.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	UnitsTab        string
}

// MongoConfig holds settings for the snapshot archive. An empty URI
// disables archiving.
type MongoConfig struct {
	URI    string
	DBName string
}

// NotifyConfig holds settings for the webhook notifier. An empty URL
// disables notifications.
type NotifyConfig struct {
	WebhookURL string
}

// JobsConfig holds the cron schedules for the recurring ledger jobs.
type JobsConfig struct {
	SnapshotSchedule  string
	RecomputeSchedule string
}

// ClockConfig names the IANA timezone business time runs in.
type ClockConfig struct {
	Timezone string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Store: StoreConfig{
			Backend: getenvWithDefault("STORE_BACKEND", StoreBackendSheets),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			UnitsTab:        getenvWithDefault("SHEET_UNITS_TAB", "units"),
		},
		Mongo: MongoConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "battrack"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
		Jobs: JobsConfig{
			// Sunday 23:55, just before the week closes.
			SnapshotSchedule: getenvWithDefault("SNAPSHOT_CRON_SCHEDULE", "55 23 * * 0"),
			// Early morning safety reprice of the running week.
			RecomputeSchedule: getenvWithDefault("RECOMPUTE_CRON_SCHEDULE", "30 4 * * *"),
		},
		Clock: ClockConfig{
			Timezone: getenvWithDefault("CLOCK_TIMEZONE", "Asia/Tokyo"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendSheets:
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
		if c.Sheets.UnitsTab == "" {
			return errors.New("SHEET_UNITS_TAB must not be empty")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendSheets, StoreBackendMemory, c.Store.Backend)
	}

	if c.Mongo.URI != "" && c.Mongo.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}

	if c.Jobs.SnapshotSchedule == "" {
		return errors.New("SNAPSHOT_CRON_SCHEDULE must be provided")
	}
	if c.Jobs.RecomputeSchedule == "" {
		return errors.New("RECOMPUTE_CRON_SCHEDULE must be provided")
	}

	if c.Clock.Timezone == "" {
		return errors.New("CLOCK_TIMEZONE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
