package runner

import (
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// EventType identifies a lifecycle event.
type EventType string

// Event types.
const (
	EventRunStarted   EventType = "run_started"
	EventTaskStarted  EventType = "task_started"
	EventTaskRetry    EventType = "task_retry"
	EventTaskFinished EventType = "task_finished"
	EventTaskSkipped  EventType = "task_skipped"
	EventRunFinished  EventType = "run_finished"
)

// Event is emitted as a run progresses. It is shaped for JSON lines output.
type Event struct {
	Time         time.Time          `json:"time"`
	Type         EventType          `json:"type"`
	RunID        string             `json:"run_id"`
	TaskID       string             `json:"task_id,omitempty"`
	Status       string             `json:"status,omitempty"`
	Attempt      int                `json:"attempt,omitempty"`
	DurationMS   int64              `json:"duration_ms,omitempty"`
	Error        string             `json:"error,omitempty"`
	Observations []core.Observation `json:"observations,omitempty"`
}

func (r *Runner) emit(ev Event) {
	if r.onEvent == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	r.eventMu.Lock()
	defer r.eventMu.Unlock()
	r.onEvent(ev)
}
