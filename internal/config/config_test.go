package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/store"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg := Default()
	assert.Equal(t, filepath.Join("/data", "scribe", "scribe.db"), cfg.Database.Path)
	assert.Equal(t, store.DriverCGO, cfg.Database.Driver)
	assert.Equal(t, store.DefaultBusyTimeoutMS, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, 10, cfg.History.RecentLimit)
	assert.True(t, cfg.Seed.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.History.RecentLimit)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
database:
  path: /tmp/x.db
  driver: sqlite
history:
  recent_limit: 25
seed:
  enabled: false
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, store.DriverPureGo, cfg.Database.Driver)
	assert.Equal(t, store.DefaultBusyTimeoutMS, cfg.Database.BusyTimeoutMS, "unset keys keep defaults")
	assert.Equal(t, 25, cfg.History.RecentLimit)
	assert.False(t, cfg.Seed.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "history:\n  recent_limit: 25\n")
	t.Setenv("SCRIBE_RECENT_LIMIT", "3")
	t.Setenv("SCRIBE_DB_PATH", "/env/scribe.db")
	t.Setenv("SCRIBE_SEED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.History.RecentLimit)
	assert.Equal(t, "/env/scribe.db", cfg.Database.Path)
	assert.False(t, cfg.Seed.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "database:\n  pth: typo.db\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "\n")
	_, err := Load(path)
	require.NoError(t, err)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("SCRIBE_RECENT_LIMIT", "many")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"empty path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"negative busy timeout", func(c *Config) { c.Database.BusyTimeoutMS = -1 }, "busy_timeout_ms"},
		{"zero limit", func(c *Config) { c.History.RecentLimit = 0 }, "recent_limit"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	l, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}

func TestStoreOptions(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "opts.db")
	cfg.Database.Driver = store.DriverPureGo

	st, err := store.Open(cfg.Database.Path, cfg.StoreOptions()...)
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, store.DriverPureGo, st.Driver())
}
