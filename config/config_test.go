package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Cedrat/watch-focus-time/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
db_path = "/tmp/watch.db"
log_level = "debug"
tick_interval = "2s"

[sync]
enabled = true
url = "https://collector.example/api/records"
access_token = "abc"
every_ticks = 60
timeout = "5s"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/watch.db", cfg.DBPath)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 2*time.Second, cfg.TickInterval.Std())
	require.True(t, cfg.Sync.Enabled)
	require.Equal(t, "https://collector.example/api/records", cfg.Sync.URL)
	require.Equal(t, "abc", cfg.Sync.AccessToken)
	require.Equal(t, 60, cfg.Sync.EveryTicks)
	require.Equal(t, 5*time.Second, cfg.Sync.Timeout.Std())
	require.Equal(t, "127.0.0.1:8080", cfg.Web.Address)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
db_path: /tmp/watch.db
db_driver: sqlite3
sync:
  enabled: false
  timeout: 10s
web:
  enabled: false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite3", cfg.DBDriver)
	require.Equal(t, 10*time.Second, cfg.Sync.Timeout.Std())
	require.Equal(t, 300, cfg.Sync.EveryTicks)
	require.False(t, cfg.Web.Enabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.toml", `
db_path = "/tmp/file.db"
log_level = "warn"
`)
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvDBPath, "/tmp/env.db")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/tmp/env.db", cfg.DBPath)
}

func TestLoadPathFromEnv(t *testing.T) {
	path := writeFile(t, "config.toml", `log_level = "error"`)
	t.Setenv(config.EnvConfigPath, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "error", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"missing url":   "[sync]\nenabled = true\n",
		"bad driver":    `db_driver = "postgres"`,
		"bad duration":  `tick_interval = "soon"`,
		"zero interval": `tick_interval = "0s"`,
		"bad cadence":   "[sync]\nenabled = true\nurl = \"http://x\"\nevery_ticks = 0\n",
		"not toml":      "db_path = ",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := config.Load(writeFile(t, "config.toml", content))
			require.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, time.Second, cfg.TickInterval.Std())
	require.Equal(t, 300, cfg.Sync.EveryTicks)
}
