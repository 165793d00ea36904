package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, BackendInMemory, cfg.Storage.Backend)
	assert.Equal(t, int64(65536), cfg.MaxBodySize)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
userfacing_listen_address: "127.0.0.1:7000"
human_logs: true
storage:
  backend: sql
  sql_driver: sqlite3
  dsn: "file:posts.db"
  conn_timeout: 250ms
  pool_size: 4
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.UserfacingListenAddress)
	assert.Equal(t, ":8081", cfg.AdminListenAddress)
	assert.True(t, cfg.HumanLogs)
	assert.Equal(t, BackendSQL, cfg.Storage.Backend)
	assert.Equal(t, "sqlite3", cfg.Storage.SQLDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.Storage.ConnTimeout)
	assert.Equal(t, 4, cfg.Storage.PoolSize)
	assert.Equal(t, 100, cfg.Storage.QueueSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: postgres
  dsn: "postgres://from-file"
`)
	cfg, err := Load(path, env(map[string]string{
		"PORT":         "9000",
		"DATABASE_URL": "postgres://from-env",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.UserfacingListenAddress)
	assert.Equal(t, "postgres://from-env", cfg.Storage.DSN)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "userfacing_listen_adress: \":1\"\n")
	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, "DSN"},
		{"sql without dsn", func(c *Config) { c.Storage.Backend = BackendSQL }, "DSN"},
		{"badger without path", func(c *Config) { c.Storage.Backend = BackendBadger; c.Storage.BadgerPath = "" }, "BadgerPath"},
		{"unknown sql driver", func(c *Config) { c.Storage.SQLDriver = "mysql" }, "SQLDriver"},
		{"zero pool", func(c *Config) { c.Storage.PoolSize = 0 }, "PoolSize"},
		{"zero body size", func(c *Config) { c.MaxBodySize = 0 }, "MaxBodySize"},
		{"bad address", func(c *Config) { c.MetricsAddress = "nowhere" }, "MetricsAddress"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tc.field, verrs[0].Field())
		})
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "cassandra"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownBackend)
}
