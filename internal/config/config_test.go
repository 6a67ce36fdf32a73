package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 4, s.Workers)
	require.Equal(t, 0, s.QueueSize)
	require.Equal(t, "jobpool", s.Name)
	require.Equal(t, "info", s.LogLevel)
	require.Equal(t, "console", s.LogFormat)
	require.Equal(t, 30*time.Second, s.ShutdownTimeout)
	require.Empty(t, s.MetricsAddr)
	require.Empty(t, s.Schedules)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("JOBPOOL_WORKERS", "8")
	t.Setenv("JOBPOOL_QUEUE_SIZE", "128")
	t.Setenv("JOBPOOL_LOG_FORMAT", "json")
	t.Setenv("JOBPOOL_SHUTDOWN_TIMEOUT", "5s")

	s, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8, s.Workers)
	require.Equal(t, 128, s.QueueSize)
	require.Equal(t, "json", s.LogFormat)
	require.Equal(t, 5*time.Second, s.ShutdownTimeout)
}

func TestLoadEnvironmentParseError(t *testing.T) {
	t.Setenv("JOBPOOL_WORKERS", "many")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse environment")
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	t.Setenv("JOBPOOL_WORKERS", "0")

	s, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 0, s.Workers)
	require.ErrorIs(t, s.Validate(), jperrors.ErrInvalidConfiguration)

	s.Workers = 4
	require.NoError(t, s.Validate())

	_, err = LoadValid("")
	require.ErrorIs(t, err, jperrors.ErrInvalidConfiguration)
}

func TestLoadFileOverridesEnvironment(t *testing.T) {
	t.Setenv("JOBPOOL_WORKERS", "8")
	t.Setenv("JOBPOOL_NAME", "from-env")

	path := writeFile(t, `
workers: 2
shutdown_timeout: 1m
schedules:
  - name: heartbeat
    spec: "@every 10s"
    message: alive
`)

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, s.Workers)
	require.Equal(t, "from-env", s.Name, "keys absent from the file keep their env value")
	require.Equal(t, time.Minute, s.ShutdownTimeout)
	require.Equal(t, []Schedule{{Name: "heartbeat", Spec: "@every 10s", Message: "alive"}}, s.Schedules)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config file")
	require.ErrorIs(t, err, os.ErrNotExist)

	path := writeFile(t, "workers: [1, 2\n")
	_, err = Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Workers:   1,
			Name:      "p",
			LogLevel:  "INFO",
			LogFormat: "json",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }, "queue_size"},
		{"empty name", func(c *Config) { c.Name = "" }, "name"},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"negative timeout", func(c *Config) { c.ShutdownTimeout = -time.Second }, "shutdown_timeout"},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			err := c.Validate()
			require.ErrorIs(t, err, jperrors.ErrInvalidConfiguration)

			var verr *jperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateSchedules(t *testing.T) {
	path := writeFile(t, `
schedules:
  - name: nightly
`)
	_, err := LoadValid(path)
	require.ErrorIs(t, err, jperrors.ErrInvalidConfiguration)
	require.Contains(t, err.Error(), `schedule "nightly"`)
}

func TestPoolConfig(t *testing.T) {
	log := zerolog.Nop()
	c := Config{Workers: 3, QueueSize: 9, Name: "conv"}

	pc := c.PoolConfig(&log)
	require.Equal(t, 3, pc.Size)
	require.Equal(t, 9, pc.QueueSize)
	require.Equal(t, "conv", pc.Name)
	require.Same(t, &log, pc.Logger)
	require.NoError(t, pc.Validate())
}
