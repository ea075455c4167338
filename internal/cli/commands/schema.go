package commands

import (
	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/schema"
	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print or apply the warehouse DDL",
		Long: `Print the CREATE TABLE statements for the staging and star-schema
tables. With --apply the statements are executed against the target;
existing tables are left untouched.`,
		Example: `  # Print the DDL
  leapetl schema

  # Create missing tables in the local DuckDB target
  leapetl schema --apply --env local`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, apply)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Execute the DDL against the target")

	return cmd
}

func runSchema(cmd *cobra.Command, apply bool) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if !apply {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(map[string]any{"tables": schema.Tables, "statements": schema.Statements()})
		}
		for _, stmt := range schema.Statements() {
			r.Println(stmt + ";")
			r.Println("")
		}
		return nil
	}

	wh, err := cmdCtx.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	if err := schema.Apply(ctx, wh, cmdCtx.Logger); err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"applied": schema.Tables})
	}
	r.Success("schema applied to " + cmdCtx.Cfg.Target.Type + " target")
	return nil
}
