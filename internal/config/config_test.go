package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCLIDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LEDGER_BACKEND", "memory")

	cfg, err := LoadCLI(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Backend)
	assert.Equal(t, "sqlite3", cfg.SQLiteDriver)
	assert.Equal(t, filepath.Join(dir, "pitbot.db"), cfg.SQLitePath)
	assert.Equal(t, []string{"04-01"}, cfg.JokeDates)
	assert.Equal(t, 10*time.Minute, cfg.Cooldown)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadCLIReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "LEDGER_BACKEND=memory\nREFERENCE_TIMEZONE=Australia/Sydney\nDATA_USER_IDS=1,2\nMOD_ROLE_IDS=99\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))
	t.Setenv("DATA_DIR", dir)
	// godotenv never overrides variables that are already set, so clear them for this test
	for _, key := range []string{"LEDGER_BACKEND", "REFERENCE_TIMEZONE", "DATA_USER_IDS", "MOD_ROLE_IDS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadCLI(envFile)
	require.NoError(t, err)

	assert.Equal(t, "Australia/Sydney", cfg.Location().String())
	assert.True(t, cfg.CanExport("2", nil))
	assert.True(t, cfg.CanExport("7", []string{"5", "99"}))
	assert.False(t, cfg.CanExport("7", []string{"5"}))
}

func TestLoadCLIRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("REFERENCE_TIMEZONE", "Mars/Olympus_Mons")

	_, err := LoadCLI("")
	assert.ErrorContains(t, err, "REFERENCE_TIMEZONE")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "missing token", cfg: Config{AppID: "app", Backend: "memory"}, wantErr: "DISCORD_TOKEN"},
		{name: "missing app id", cfg: Config{Token: "tok", Backend: "memory"}, wantErr: "APP_ID"},
		{name: "postgres without url", cfg: Config{Token: "tok", AppID: "app", Backend: "postgres"}, wantErr: "DATABASE_URL"},
		{name: "unknown backend", cfg: Config{Token: "tok", AppID: "app", Backend: "redis"}, wantErr: "LEDGER_BACKEND"},
		{name: "valid", cfg: Config{Token: "tok", AppID: "app", Backend: "sqlite"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestIsDebugUser(t *testing.T) {
	cfg := &Config{DebugUserIDs: []string{"113555028207226880"}}

	assert.True(t, cfg.IsDebugUser("113555028207226880"))
	assert.False(t, cfg.IsDebugUser("42"))
}
