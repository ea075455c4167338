package operators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Reasons a table fails the quality gate.
const (
	ReasonNoResults = "returned no results"
	ReasonEmpty     = "has no records"
)

// Observation is the row count seen for one table.
type Observation = core.Observation

// QualityCheckError reports one table failing the gate.
type QualityCheckError struct {
	Table  string
	Reason string
}

func (e *QualityCheckError) Error() string {
	return fmt.Sprintf("data quality check failed: %s %s", e.Table, e.Reason)
}

// QualityGateError aggregates every failing table of one gate run.
type QualityGateError struct {
	Task     string
	Failures []*QualityCheckError
}

func (e *QualityGateError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Table + " " + f.Reason
	}
	return fmt.Sprintf("task %s: data quality check failed for %d table(s): %s",
		e.Task, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes each failure to errors.Is and errors.As.
func (e *QualityGateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Tables returns the names of the failing tables.
func (e *QualityGateError) Tables() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Table
	}
	return out
}

// QualityOperator asserts that every configured table has at least one row.
type QualityOperator struct {
	TaskID    string
	Config    pipeline.QualityCheckConfig
	Warehouse Warehouse
	Logger    *slog.Logger
}

// Execute implements Operator.
func (o *QualityOperator) Execute(ctx context.Context, _ RunContext) error {
	_, err := o.Check(ctx)
	return err
}

// Check counts the rows of every table. All tables are checked; failures are
// returned together as a *QualityGateError. A warehouse error aborts the
// check immediately and is not a quality failure.
func (o *QualityOperator) Check(ctx context.Context) ([]Observation, error) {
	cfg := o.Config
	if err := (pipeline.Task{ID: o.TaskID, Kind: pipeline.KindQuality, Quality: &cfg}).Validate(); err != nil {
		return nil, err
	}

	var (
		observations []Observation
		failures     []*QualityCheckError
	)
	for _, table := range cfg.Tables {
		count, found, err := o.count(ctx, table)
		if err != nil {
			return observations, fmt.Errorf("task %s: count %s: %w", o.TaskID, table, err)
		}

		switch {
		case !found:
			o.Logger.Error("quality check returned no results", slog.String("table", table))
			failures = append(failures, &QualityCheckError{Table: table, Reason: ReasonNoResults})
		case count == 0:
			o.Logger.Error("no records in destination table", slog.String("table", table))
			failures = append(failures, &QualityCheckError{Table: table, Reason: ReasonEmpty})
		default:
			o.Logger.Info("data quality check passed", slog.String("table", table), slog.Int64("records", count))
			observations = append(observations, Observation{Table: table, Count: count})
		}
	}

	if len(failures) > 0 {
		return observations, &QualityGateError{Task: o.TaskID, Failures: failures}
	}
	return observations, nil
}

func (o *QualityOperator) count(ctx context.Context, table string) (int64, bool, error) {
	rows, err := o.Warehouse.Query(ctx, "SELECT COUNT(*) FROM "+o.Warehouse.QuoteIdentifier(table))
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, false, err
	}
	if len(cols) == 0 || !rows.Next() {
		return 0, false, rows.Err()
	}

	var count int64
	if err := rows.Scan(&count); err != nil {
		return 0, false, err
	}
	return count, true, rows.Err()
}
