package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "consultd", cfg.Database.Name)
	assert.Equal(t, "127.0.0.1:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "consultd", cfg.Temporal.TaskQueue)
	assert.Equal(t, "base", cfg.Transcriber.Model)
	assert.Equal(t, 5*time.Minute, cfg.Transcriber.Timeout.Duration())
	assert.Equal(t, 10*time.Minute, cfg.Sweep.StaleAfter.Duration())
	assert.Equal(t, time.Minute, cfg.Sweep.Interval.Duration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
  shutdown_timeout: 30s
database:
  host: db.internal
  port: 5433
  password: sekrit
transcriber:
  base_url: http://stt.internal:9000
  model: large-v3
  timeout: 10m
sweep:
  enabled: true
  stale_after: 15m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "sekrit", cfg.Database.Password.Value())
	assert.Equal(t, "http://stt.internal:9000", cfg.Transcriber.BaseURL)
	assert.Equal(t, "large-v3", cfg.Transcriber.Model)
	assert.Equal(t, 10*time.Minute, cfg.Transcriber.Timeout.Duration())
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Sweep.StaleAfter.Duration())
	// Untouched sections keep defaults.
	assert.Equal(t, "consultd", cfg.Temporal.TaskQueue)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("TRANSCRIBER_BASE_URL", "http://env.example:9000")
	t.Setenv("DATABASE_LOG_QUERIES", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "http://env.example:9000", cfg.Transcriber.BaseURL)
	assert.True(t, cfg.Database.LogQueries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad base URL", "transcriber:\n  base_url: \"not a url\"\n"},
		{"bad port", "database:\n  port: 99999\n"},
		{"negative duration", "sweep:\n  stale_after: -5m\n"},
		{"bad log level", "logging:\n  level: shouty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hunter2")

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}
