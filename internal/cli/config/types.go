// Package config provides configuration management for the leapetl CLI.
//
// A config file (leapetl.yaml) declares the warehouse target, the named
// object-storage connections, the pipeline definition and per-environment
// overrides. Values are layered: defaults, config file, LEAPETL_ environment
// variables, then command-line flags.
package config

import (
	"github.com/leapstack-labs/leapetl/internal/credentials"
	intconfig "github.com/leapstack-labs/leapetl/internal/config"
	"github.com/leapstack-labs/leapetl/internal/pipeline"
)

// TargetConfig is an alias for the shared target configuration.
// This allows CLI code to use config.TargetConfig without importing internal/config.
type TargetConfig = intconfig.TargetConfig

// Connection is an alias for a named credentials connection.
type Connection = credentials.Connection

// MetricsConfig configures the Pushgateway metrics backend.
type MetricsConfig struct {
	PushgatewayURL string            `mapstructure:"pushgateway_url" yaml:"pushgateway_url,omitempty"`
	Job            string            `mapstructure:"job" yaml:"job"`
	Grouping       map[string]string `mapstructure:"grouping" yaml:"grouping,omitempty"`
}

// Enabled reports whether metrics should be pushed.
func (m MetricsConfig) Enabled() bool {
	return m.PushgatewayURL != ""
}

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string                `mapstructure:"state_path" yaml:"state_path"`
	Environment  string                `mapstructure:"environment" yaml:"environment"`
	Verbose      bool                  `mapstructure:"verbose" yaml:"verbose"`
	LogLevel     string                `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	OutputFormat string                `mapstructure:"output" yaml:"output" validate:"omitempty,oneof=auto text markdown json"`
	Target       *TargetConfig         `mapstructure:"target" yaml:"target"`
	Connections  map[string]Connection `mapstructure:"connections" yaml:"connections,omitempty" validate:"dive"`
	Pipeline     pipeline.Definition   `mapstructure:"pipeline" yaml:"pipeline"`
	Metrics      MetricsConfig         `mapstructure:"metrics" yaml:"metrics"`
	Environments map[string]EnvConfig  `mapstructure:"environments" yaml:"environments,omitempty"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `mapstructure:"-" yaml:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	StatePath   string                `mapstructure:"state_path" yaml:"state_path,omitempty"`
	Target      *TargetConfig         `mapstructure:"target" yaml:"target,omitempty"`
	Connections map[string]Connection `mapstructure:"connections" yaml:"connections,omitempty"`
	Metrics     *MetricsConfig        `mapstructure:"metrics" yaml:"metrics,omitempty"`
}

// Default configuration values.
const (
	DefaultStateFile  = ".leapetl/state.db"
	DefaultEnv        = "dev"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel   = "info"
	DefaultMetricsJob = "leapetl"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leapetl.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leapetl.yml"

const redacted = "********"

// Redacted returns a copy of the config with passwords and secret keys
// masked, suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	if c.Target != nil {
		t := c.Target.Redacted()
		out.Target = &t
	}
	out.Connections = redactConnections(c.Connections)
	if len(c.Environments) > 0 {
		out.Environments = make(map[string]EnvConfig, len(c.Environments))
		for name, env := range c.Environments {
			if env.Target != nil {
				t := env.Target.Redacted()
				env.Target = &t
			}
			env.Connections = redactConnections(env.Connections)
			out.Environments[name] = env
		}
	}
	return &out
}

func redactConnections(in map[string]Connection) map[string]Connection {
	if in == nil {
		return nil
	}
	out := make(map[string]Connection, len(in))
	for name, conn := range in {
		if conn.SecretAccessKey != "" {
			conn.SecretAccessKey = redacted
		}
		if conn.SessionToken != "" {
			conn.SessionToken = redacted
		}
		out[name] = conn
	}
	return out
}
