// Package config provides the warehouse target configuration shared by the
// CLI and the runner: the target type, connection fields and the defaults
// applied per adapter.
package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/adapter"
)

// TargetConfig holds warehouse target configuration.
type TargetConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // redshift, duckdb

	// File-based databases (DuckDB)
	Database string `mapstructure:"database" yaml:"database,omitempty"` // file path or database name

	// Network databases
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	User     string `mapstructure:"user" yaml:"user,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// Common
	Schema string `mapstructure:"schema" yaml:"schema,omitempty"`

	// Additional driver-specific options, e.g. sslmode
	Options map[string]string `mapstructure:"options" yaml:"options,omitempty"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `mapstructure:"params" yaml:"params,omitempty"`
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	// Use adapter registry as single source of truth
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	cfg := adapter.Config{
		Type:     strings.ToLower(t.Type),
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  maps.Clone(t.Options),
		Params:   maps.Clone(t.Params),
	}
	if cfg.Type == "duckdb" {
		cfg.Path = t.Database
	}
	return cfg
}

// Redacted returns a copy with the password masked.
func (t TargetConfig) Redacted() TargetConfig {
	if t.Password != "" {
		t.Password = "********"
	}
	return t
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string)
	merged.Params = make(map[string]any)
	maps.Copy(merged.Options, base.Options)
	maps.Copy(merged.Params, base.Params)

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}

	maps.Copy(merged.Options, override.Options)
	maps.Copy(merged.Params, override.Params)

	return &merged
}
