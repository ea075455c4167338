package operators

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// StageOperator reloads a staging table from JSON objects in S3.
//
// The table is truncated and then bulk loaded. The two statements are not
// wrapped in a transaction; a failed load leaves the table empty or partial.
type StageOperator struct {
	TaskID      string
	Config      pipeline.StageConfig
	Warehouse   Warehouse
	Credentials CredentialResolver
	Logger      *slog.Logger
}

// Execute implements Operator.
func (o *StageOperator) Execute(ctx context.Context, rc RunContext) error {
	cfg := o.Config
	if err := (pipeline.Task{ID: o.TaskID, Kind: pipeline.KindStage, Stage: &cfg}).Validate(); err != nil {
		return err
	}

	creds, err := o.Credentials.Resolve(ctx, cfg.CredentialsID)
	if err != nil {
		return fmt.Errorf("task %s: resolve credentials %q: %w", o.TaskID, cfg.CredentialsID, err)
	}
	if !creds.Valid() {
		return &ConfigError{Task: o.TaskID, Field: "credentials_id", Reason: "did not resolve to an access and secret key pair"}
	}

	o.Logger.Info("clearing data from destination table", slog.String("table", cfg.Table))
	if err := o.Warehouse.Exec(ctx, "TRUNCATE TABLE "+o.Warehouse.QuoteIdentifier(cfg.Table)); err != nil {
		return fmt.Errorf("task %s: truncate %s: %w", o.TaskID, cfg.Table, err)
	}

	source := cfg.Source(rc.ExecutionDate)
	o.Logger.Info("copying data from object storage",
		slog.String("table", cfg.Table),
		slog.String("source", source))

	err = o.Warehouse.BulkLoadJSON(ctx, core.BulkLoadRequest{
		Table:       cfg.Table,
		Source:      source,
		JSONMapping: cfg.JSONMapping,
		Region:      cfg.Region,
		Credentials: creds,
	})
	if err != nil {
		return fmt.Errorf("task %s: load %s from %s: %w", o.TaskID, cfg.Table, source, err)
	}
	return nil
}
