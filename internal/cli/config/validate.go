package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapetl/internal/pipeline"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := pipeline.ValidateStruct(c); err != nil {
		return err
	}
	if c.Target == nil {
		return fmt.Errorf("target is required")
	}
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	return nil
}

// ValidateConnections checks that every connection the pipeline refers to
// is declared. Only commands that load data need this.
func (c *Config) ValidateConnections() error {
	for _, stage := range []pipeline.StageConfig{c.Pipeline.Events, c.Pipeline.Songs} {
		id := stage.CredentialsID
		if _, ok := c.Connections[id]; !ok {
			return fmt.Errorf("connection %q used by %s is not defined\nHint: add it under connections: in %s (declared: %v)",
				id, stage.Table, ConfigFileName, c.connectionNames())
		}
	}
	return nil
}

func (c *Config) connectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
