package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapetl/internal/cli/config"
	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/credentials"
	"github.com/leapstack-labs/leapetl/internal/metrics"
	"github.com/leapstack-labs/leapetl/internal/metrics/prompush"
	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/leapstack-labs/leapetl/internal/state"
	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/spf13/cobra"

	// Register warehouse adapters
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/redshift"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded config.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Pipeline builds the pipeline graph from config.
func (c *CommandContext) Pipeline() (*pipeline.Pipeline, error) {
	p, err := pipeline.Define(c.Cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}
	return p, nil
}

// OpenWarehouse connects to the configured target.
// The caller must close the returned adapter.
func (c *CommandContext) OpenWarehouse(ctx context.Context) (adapter.Adapter, error) {
	cfg := c.Cfg.Target.AdapterConfig()
	wh, err := adapter.NewAdapter(cfg, c.Logger)
	if err != nil {
		return nil, err
	}
	if err := wh.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s target: %w", cfg.Type, err)
	}
	c.Logger.Debug("connected to warehouse", "type", cfg.Type, "host", cfg.Host, "database", cfg.Database)
	return wh, nil
}

// OpenStore opens the run history database.
// The caller must close the returned store.
func (c *CommandContext) OpenStore(ctx context.Context) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(ctx, c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

// Credentials returns a resolver over the configured connections.
func (c *CommandContext) Credentials() *credentials.Provider {
	return credentials.NewProvider(c.Cfg.Connections, c.Logger)
}

// Metrics returns a recorder pushing to the configured Pushgateway, or a
// no-op recorder when none is configured.
func (c *CommandContext) Metrics() (*metrics.Recorder, error) {
	m := c.Cfg.Metrics
	if !m.Enabled() {
		return metrics.NewRecorder(nil), nil
	}
	grouping := map[string]string{"pipeline": c.Cfg.Pipeline.Name, "environment": c.Cfg.Environment}
	for k, v := range m.Grouping {
		grouping[k] = v
	}
	b, err := prompush.NewBackend(m.Job, m.PushgatewayURL, grouping)
	if err != nil {
		return nil, err
	}
	return metrics.NewRecorder(b), nil
}

// getConfig returns the current configuration, loading defaults when the
// root command did not run (e.g. in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			StatePath:    config.DefaultStateFile,
			Environment:  config.DefaultEnv,
			OutputFormat: config.DefaultOutput,
			Pipeline:     pipeline.DefaultDefinition(),
			Target:       &config.TargetConfig{Type: "redshift"},
		}
	}
	return cfg
}
