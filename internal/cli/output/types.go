package output

import (
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// DAGOutput is the JSON form of the dag command.
type DAGOutput struct {
	Pipeline   string     `json:"pipeline"`
	Levels     []DAGLevel `json:"levels"`
	TotalTasks int        `json:"total_tasks"`
	TotalEdges int        `json:"total_edges"`
}

// DAGLevel groups tasks that can run in parallel.
type DAGLevel struct {
	Level int       `json:"level"`
	Tasks []DAGNode `json:"tasks"`
}

// DAGNode is one task in the DAG output.
type DAGNode struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Target    string   `json:"target,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
	UsedBy    []string `json:"used_by,omitempty"`
}

// RunSummary is the JSON form of a finished run.
type RunSummary struct {
	RunID        string             `json:"run_id"`
	Status       string             `json:"status"`
	Tasks        []TaskSummary      `json:"tasks"`
	Observations []core.Observation `json:"observations,omitempty"`
	DurationMS   int64              `json:"duration_ms"`
	Error        string             `json:"error,omitempty"`
}

// TaskSummary is one task of a run.
type TaskSummary struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunInfo is one row of the runs command.
type RunInfo struct {
	ID            string     `json:"id"`
	Pipeline      string     `json:"pipeline"`
	Environment   string     `json:"environment"`
	Status        string     `json:"status"`
	ExecutionDate *time.Time `json:"execution_date,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// RunsOutput is the JSON form of the runs command.
type RunsOutput struct {
	Runs []RunInfo `json:"runs"`
}

// CheckResult is one table of the check command.
type CheckResult struct {
	Table  string `json:"table"`
	Count  int64  `json:"count"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// CheckOutput is the JSON form of the check command.
type CheckOutput struct {
	Passed bool          `json:"passed"`
	Tables []CheckResult `json:"tables"`
}

// NewRunInfo converts a stored run.
func NewRunInfo(r *core.Run) RunInfo {
	return RunInfo{
		ID:            r.ID,
		Pipeline:      r.Pipeline,
		Environment:   r.Environment,
		Status:        string(r.Status),
		ExecutionDate: r.ExecutionDate,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		Error:         r.Error,
	}
}
