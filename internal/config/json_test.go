package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"database_dsn":       "postgres://db/records",
		"max_connections":    8,
		"log_format":         "zerolog",
		"log_level":          "warn",
		"session_ttl":        "2h",
		"migrate_on_start":   false,
		"bootstrap_role":     "ROOT",
		"bootstrap_username": "root_user",
		"bootstrap_password": "pw",
	})
	partial := writeTempJSON(t, dir, "partial.json", map[string]any{
		"log_level": "debug",
	})

	t.Run("loads every key", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "postgres://db/records", cfg.DatabaseDSN)
		assert.Equal(t, 8, cfg.MaxConnections)
		assert.Equal(t, "zerolog", cfg.LogFormat)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
		assert.False(t, cfg.MigrateOnStart)
		assert.Equal(t, "ROOT", cfg.BootstrapRole)
		assert.Equal(t, "root_user", cfg.BootstrapUsername)
		assert.Equal(t, "pw", cfg.BootstrapPassword)
	})

	t.Run("absent keys keep defaults", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 5, cfg.MaxConnections)
		assert.True(t, cfg.MigrateOnStart)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DatabaseDSN: "keep"}
		parseJson(cfg)
		assert.Equal(t, "keep", cfg.DatabaseDSN)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
