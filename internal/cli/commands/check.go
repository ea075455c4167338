package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/operators"
	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [table...]",
		Short: "Run the data quality gate",
		Long: `Count the rows of each star-schema table and fail if any is empty.

Without arguments the tables configured under pipeline.quality are checked.
Nothing is loaded; this is the quality gate on its own.`,
		Example: `  # Check the configured tables
  leapetl check

  # Check two tables as JSON
  leapetl check songs users -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command, tables []string) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	cfg := cmdCtx.Cfg.Pipeline.Quality
	if len(tables) > 0 {
		cfg.Tables = tables
	}

	wh, err := cmdCtx.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	op := &operators.QualityOperator{
		TaskID:    pipeline.TaskQuality,
		Config:    cfg,
		Warehouse: wh,
		Logger:    cmdCtx.Logger,
	}
	obs, checkErr := op.Check(ctx)

	var gateErr *operators.QualityGateError
	if checkErr != nil && !errors.As(checkErr, &gateErr) {
		return checkErr
	}

	result := checkOutput(cfg.Tables, obs, gateErr)
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(result); err != nil {
			return err
		}
	default:
		renderCheck(r, result)
	}

	if gateErr != nil {
		return fmt.Errorf("quality gate failed: %w", gateErr)
	}
	return nil
}

// checkOutput merges passing observations and failures in table order.
func checkOutput(tables []string, obs []operators.Observation, gateErr *operators.QualityGateError) output.CheckOutput {
	counts := make(map[string]int64, len(obs))
	for _, o := range obs {
		counts[o.Table] = o.Count
	}
	reasons := make(map[string]string)
	if gateErr != nil {
		for _, f := range gateErr.Failures {
			reasons[f.Table] = f.Reason
		}
	}

	out := output.CheckOutput{Passed: gateErr == nil, Tables: make([]output.CheckResult, 0, len(tables))}
	for _, table := range tables {
		reason, failed := reasons[table]
		out.Tables = append(out.Tables, output.CheckResult{
			Table:  table,
			Count:  counts[table],
			Passed: !failed,
			Reason: reason,
		})
	}
	return out
}

func renderCheck(r *output.Renderer, result output.CheckOutput) {
	rows := make([][]string, 0, len(result.Tables))
	for _, t := range result.Tables {
		status := "ok"
		if !t.Passed {
			status = t.Reason
		}
		rows = append(rows, []string{t.Table, fmt.Sprintf("%d", t.Count), status})
	}

	r.Header(2, "Data Quality")
	r.Table([]string{"Table", "Rows", "Status"}, rows)

	if result.Passed {
		r.Success(fmt.Sprintf("%d table(s) passed", len(result.Tables)))
	} else {
		r.Error("quality gate failed")
	}
}
