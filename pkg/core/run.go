package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TaskRunStatus represents the status of a single task within a run.
type TaskRunStatus string

// Task run status constants.
const (
	TaskRunStatusPending TaskRunStatus = "pending"
	TaskRunStatusRunning TaskRunStatus = "running"
	TaskRunStatusSuccess TaskRunStatus = "success"
	TaskRunStatusFailed  TaskRunStatus = "failed"
	TaskRunStatusSkipped TaskRunStatus = "skipped"
)

// Run is one execution of a pipeline.
type Run struct {
	ID            string
	Pipeline      string
	Environment   string
	Status        RunStatus
	ExecutionDate *time.Time
	StartedAt     time.Time
	CompletedAt   *time.Time
	Error         string
}

// TaskRun is one task's execution within a run.
type TaskRun struct {
	ID          string
	RunID       string
	TaskID      string
	Status      TaskRunStatus
	Attempts    int
	StartedAt   *time.Time
	CompletedAt *time.Time
	DurationMS  int64
	Error       string
}

// Observation is the row count a quality gate saw for one table.
type Observation struct {
	Table string `json:"table"`
	Count int64  `json:"count"`
}
