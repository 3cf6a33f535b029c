package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryBackendNeedsNoSheets(t *testing.T) {
	t.Setenv("STORE_BACKEND", StoreBackendMemory)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "")
	for _, key := range []string{
		"APP_PORT", "SHEET_UNITS_TAB", "MONGODB_DB_NAME",
		"CLOCK_TIMEZONE", "SNAPSHOT_CRON_SCHEDULE", "RECOMPUTE_CRON_SCHEDULE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "units", cfg.Sheets.UnitsTab)
	assert.Equal(t, "battrack", cfg.Mongo.DBName)
	assert.Equal(t, "Asia/Tokyo", cfg.Clock.Timezone)
	assert.Equal(t, "55 23 * * 0", cfg.Jobs.SnapshotSchedule)
	assert.Equal(t, "30 4 * * *", cfg.Jobs.RecomputeSchedule)
}

func TestLoadSheetsBackendRequiresCredentials(t *testing.T) {
	t.Setenv("STORE_BACKEND", StoreBackendSheets)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_SHEETS_CREDENTIALS_PATH")
}

func TestLoadSheetsBackendComplete(t *testing.T) {
	t.Setenv("STORE_BACKEND", StoreBackendSheets)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/etc/battrack/creds.json")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "sheet-id")
	t.Setenv("SHEET_UNITS_TAB", "ledger")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ledger", cfg.Sheets.UnitsTab)
	assert.Equal(t, "/etc/battrack/creds.json", cfg.Sheets.CredentialsPath)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestValidateMongoURINeedsDBName(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: "8080"},
		Store:  StoreConfig{Backend: StoreBackendMemory},
		Mongo:  MongoConfig{URI: "mongodb://localhost:27017", DBName: ""},
		Jobs:   JobsConfig{SnapshotSchedule: "55 23 * * 0", RecomputeSchedule: "30 4 * * *"},
		Clock:  ClockConfig{Timezone: "Asia/Tokyo"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_DB_NAME")
}
