package testutil

import (
	"path/filepath"
	"testing"

	"tally/engine/config"
	"tally/engine/db"
)

// OpenTestDB connects the db package to a throwaway sqlite file and runs
// the migrations. Each call gets a fresh database.
func OpenTestDB(t *testing.T) {
	t.Helper()
	db.Connect("sqlite:" + filepath.Join(t.TempDir(), "tally_test.db"))
}

// TestConfig returns a minimal valid configuration with fast timings
func TestConfig() *config.ConfigSettings {
	return &config.ConfigSettings{
		RequiredSettings: config.RequiredConfig{
			EventName:    "test-event",
			DBConnectURL: "sqlite::memory:",
			BindAddress:  "127.0.0.1",
		},
		MiscSettings: config.MiscConfig{
			Port:             8080,
			Delay:            60,
			Timeout:          2,
			Workers:          4,
			HistoryWindow:    10,
			AutosaveInterval: 5,
			SubmissionDir:    "submissions",
		},
	}
}
