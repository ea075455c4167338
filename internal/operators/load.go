package operators

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapetl/internal/pipeline"
)

// LoadOperator populates a fact or dimension table with INSERT INTO ... SELECT.
// In replace mode the table is truncated first.
type LoadOperator struct {
	TaskID    string
	Config    pipeline.LoadConfig
	Warehouse Warehouse
	Logger    *slog.Logger
}

// Execute implements Operator.
func (o *LoadOperator) Execute(ctx context.Context, _ RunContext) error {
	cfg := o.Config
	if err := (pipeline.Task{ID: o.TaskID, Kind: pipeline.KindLoad, Load: &cfg}).Validate(); err != nil {
		return err
	}

	table := o.Warehouse.QuoteIdentifier(cfg.Table)

	if cfg.Mode == pipeline.ModeReplace {
		o.Logger.Info("clearing data from destination table", slog.String("table", cfg.Table))
		if err := o.Warehouse.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("task %s: truncate %s: %w", o.TaskID, cfg.Table, err)
		}
	}

	o.Logger.Info("loading table",
		slog.String("table", cfg.Table),
		slog.String("role", string(cfg.Role)),
		slog.String("mode", string(cfg.Mode)))

	if err := o.Warehouse.Exec(ctx, "INSERT INTO "+table+" "+cfg.Query); err != nil {
		return fmt.Errorf("task %s: insert into %s: %w", o.TaskID, cfg.Table, err)
	}
	return nil
}
