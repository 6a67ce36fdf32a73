// Package config loads jobpool command settings.
//
// Values come from three layers, later ones winning: envDefault tags, the
// JOBPOOL_* environment, then an optional YAML file. Command-line flags are
// applied on top by the command itself.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/jobpool/internal/logging"
	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
	"github.com/vnykmshr/jobpool/pkg/common/validation"
	"github.com/vnykmshr/jobpool/pkg/jobpool"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "JOBPOOL_"

const module = "config"

// Config holds the scalar settings shared by all subcommands.
type Config struct {
	// ── Pool ─────────────────────────────────────────────────────────────────────
	Workers   int    `env:"WORKERS"    envDefault:"4"       yaml:"workers"`
	QueueSize int    `env:"QUEUE_SIZE" envDefault:"0"       yaml:"queue_size"`
	Name      string `env:"NAME"       envDefault:"jobpool" yaml:"name"`

	// Upper bound on the drain at exit; 0 waits indefinitely.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`

	// ── Logging ──────────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"    yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console" yaml:"log_format"`

	// ── Metrics ──────────────────────────────────────────────────────────────────
	// Empty disables the /metrics listener.
	MetricsAddr string `env:"METRICS_ADDR" yaml:"metrics_addr"`
}

// Schedule is one cron entry for the schedule subcommand.
type Schedule struct {
	Name    string `yaml:"name"`
	Spec    string `yaml:"spec"`
	Message string `yaml:"message"`
}

// Settings is everything Load produces. Schedules only come from the file.
type Settings struct {
	Config    `yaml:",inline"`
	Schedules []Schedule `yaml:"schedules"`
}

// Load parses the environment and overlays the YAML file at path, if any.
// The result is not validated: callers apply their own overrides first and
// then call Validate.
func Load(path string) (*Settings, error) {
	s := &Settings{}
	if err := env.ParseWithOptions(&s.Config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	return s, nil
}

// LoadValid is Load followed by Validate.
func LoadValid(path string) (*Settings, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	checks := []error{
		validation.ValidatePositive(module, "workers", c.Workers),
		validation.ValidateNonNegative(module, "queue_size", c.QueueSize),
		validation.ValidateNotEmpty(module, "name", c.Name),
		validation.ValidateOneOf(module, "log_level", c.LogLevel, logging.Levels...),
		validation.ValidateOneOf(module, "log_format", c.LogFormat, logging.FormatJSON, logging.FormatConsole),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if c.ShutdownTimeout < 0 {
		return jperrors.NewValidationError(module, "shutdown_timeout", c.ShutdownTimeout, "cannot be negative").
			WithHint("use 0 to wait for the drain indefinitely")
	}
	return nil
}

// Validate checks the pool settings and every schedule entry.
func (s *Settings) Validate() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	for i, sc := range s.Schedules {
		if err := validation.ValidateNotEmpty(module, "schedules.name", sc.Name); err != nil {
			return errors.Wrapf(err, "schedule %d", i)
		}
		if err := validation.ValidateNotEmpty(module, "schedules.spec", sc.Spec); err != nil {
			return errors.Wrapf(err, "schedule %q", sc.Name)
		}
	}
	return nil
}

// PoolConfig converts the settings into a pool configuration.
func (c *Config) PoolConfig(log *zerolog.Logger) jobpool.Config {
	return jobpool.Config{
		Size:      c.Workers,
		QueueSize: c.QueueSize,
		Name:      c.Name,
		Logger:    log,
	}
}
