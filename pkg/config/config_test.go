package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Order.ConflictRetries)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  mode: tcp
  port: "9090"
db:
  path: /var/lib/zen
  busy_timeout: 2s
order:
  conflict_retries: 3
`), 0o600))

	t.Setenv("ZEN_PORT", "7070")
	t.Setenv("ZEN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "/var/lib/zen", cfg.DB.Path)
	assert.Equal(t, "zen", cfg.DB.Name)
	assert.Equal(t, 2*time.Second, cfg.DB.BusyTimeout)
	assert.Equal(t, 3, cfg.Order.ConflictRetries)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envOf(map[string]string{
		"ZEN_AUTH_SECRET":      "s3cret",
		"ZEN_SERVER_MODE":      "uds",
		"ZEN_CONFLICT_RETRIES": "0",
	})))
	assert.False(t, cfg.Auth.Local)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, ServerModeUDS, cfg.Server.Mode)
	assert.Zero(t, cfg.Order.ConflictRetries)
	require.NoError(t, cfg.Validate())

	require.Error(t, cfg.applyEnv(envOf(map[string]string{"ZEN_CONFLICT_RETRIES": "many"})))
	require.Error(t, cfg.applyEnv(envOf(map[string]string{"ZEN_AUTH_LOCAL": "maybe"})))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "server mode", mutate: func(c *Config) { c.Server.Mode = "pipe" }, want: ErrServerMode},
		{name: "db mode", mutate: func(c *Config) { c.DB.Mode = "postgres" }, want: ErrDBMode},
		{name: "secret", mutate: func(c *Config) { c.Auth.Local = false }},
		{name: "port", mutate: func(c *Config) { c.Server.Port = "http" }},
		{name: "level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		{name: "format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{name: "retries", mutate: func(c *Config) { c.Order.ConflictRetries = -1 }},
		{name: "local db path", mutate: func(c *Config) { c.DB.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
