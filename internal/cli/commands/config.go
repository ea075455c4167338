package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapetl/internal/cli/config"
	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, the config file, LEAPETL_
environment variables, flags and the selected environment have been
applied. Passwords and secret keys are masked.`,
		Example: `  # Effective config for the local environment
  leapetl config --env local`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd)
		},
	}

	return cmd
}

func runConfig(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	cfg := cmdCtx.Cfg.Redacted()

	doc, err := configDocument(cfg)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(doc)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if f := config.GetConfigFileUsed(); f != "" {
		r.Println("# " + f)
	}
	r.Printf("%s", out)
	return nil
}

// configDocument converts cfg to its yaml key layout with durations in
// their string form.
func configDocument(cfg *config.Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if p, ok := doc["pipeline"].(map[string]any); ok {
		p["retry_delay"] = cfg.Pipeline.Args.RetryDelay.String()
	}
	return doc, nil
}
