// Package operators implements the task bodies of the pipeline: staging
// loads, fact and dimension loads, and the data-quality gate.
//
// Operators are synchronous and talk to the warehouse only through the
// Warehouse interface. They never retry; retry policy belongs to the caller.
package operators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Warehouse is the subset of a warehouse adapter the operators need.
type Warehouse interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (*core.Rows, error)
	QuoteIdentifier(name string) string
	BulkLoadJSON(ctx context.Context, req core.BulkLoadRequest) error
}

// CredentialResolver turns a named connection into object-storage credentials.
type CredentialResolver interface {
	Resolve(ctx context.Context, id string) (core.Credentials, error)
}

// RunContext carries per-run values into an operator.
type RunContext struct {
	RunID string
	// ExecutionDate selects the partitioned source of stage tasks when set.
	ExecutionDate *time.Time
}

// Operator executes one task.
type Operator interface {
	Execute(ctx context.Context, rc RunContext) error
}

// ConfigError reports a missing or invalid task configuration field.
type ConfigError = pipeline.ConfigError

// New returns the operator for a task.
func New(task pipeline.Task, wh Warehouse, creds CredentialResolver, logger *slog.Logger) (Operator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("task", task.ID))

	switch task.Kind {
	case pipeline.KindStart:
		return StartOperator{}, nil
	case pipeline.KindStage:
		if task.Stage == nil {
			return nil, &ConfigError{Task: task.ID, Field: "stage", Reason: "is required"}
		}
		return &StageOperator{TaskID: task.ID, Config: *task.Stage, Warehouse: wh, Credentials: creds, Logger: logger}, nil
	case pipeline.KindLoad:
		if task.Load == nil {
			return nil, &ConfigError{Task: task.ID, Field: "load", Reason: "is required"}
		}
		return &LoadOperator{TaskID: task.ID, Config: *task.Load, Warehouse: wh, Logger: logger}, nil
	case pipeline.KindQuality:
		if task.Quality == nil {
			return nil, &ConfigError{Task: task.ID, Field: "quality", Reason: "is required"}
		}
		return &QualityOperator{TaskID: task.ID, Config: *task.Quality, Warehouse: wh, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("task %s: unknown kind %q", task.ID, task.Kind)
	}
}

// StartOperator marks the entry point of the graph and does nothing.
type StartOperator struct{}

// Execute implements Operator.
func (StartOperator) Execute(context.Context, RunContext) error { return nil }
