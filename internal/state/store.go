// Package state records pipeline runs, task runs and quality observations
// in a local SQLite database.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, pipeline, env string, executionDate *time.Time) (*core.Run, error)
	CompleteRun(ctx context.Context, id string, status core.RunStatus, errMsg string) error
	GetRun(ctx context.Context, id string) (*core.Run, error)
	GetLatestRun(ctx context.Context, pipeline string) (*core.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)

	// SaveTaskRun inserts or updates the task run identified by
	// (RunID, TaskID). An empty ID is filled in.
	SaveTaskRun(ctx context.Context, tr *core.TaskRun) error
	GetTaskRuns(ctx context.Context, runID string) ([]*core.TaskRun, error)

	RecordObservations(ctx context.Context, runID string, obs []core.Observation) error
	GetObservations(ctx context.Context, runID string) ([]core.Observation, error)

	Close() error
}
