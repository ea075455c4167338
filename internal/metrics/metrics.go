// Package metrics records operational metrics for pipeline runs behind a
// small backend-agnostic interface.
//
// The default backend is a no-op, so recording is always safe. Batch runs
// are short-lived, which is why the concrete backend (prompush) pushes to a
// Prometheus Pushgateway instead of exposing a scrape endpoint.
package metrics

import (
	"context"
	"time"
)

// Metric names.
const (
	TaskTotal           = "leapetl_task_total"
	TaskDurationSeconds = "leapetl_task_duration_seconds"
	TaskRetriesTotal    = "leapetl_task_retries_total"
	RunTotal            = "leapetl_run_total"
	RunDurationSeconds  = "leapetl_run_duration_seconds"
	TableRows           = "leapetl_table_rows"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge sets a gauge to value.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush(ctx context.Context) error
}

// Nop discards every metric.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) SetGauge(string, float64, Labels)         {}
func (Nop) Flush(context.Context) error              { return nil }

// Recorder maps pipeline events onto backend metrics.
type Recorder struct {
	backend Backend
}

// NewRecorder wraps a backend. A nil backend records nothing.
func NewRecorder(b Backend) *Recorder {
	if b == nil {
		b = Nop{}
	}
	return &Recorder{backend: b}
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordTask counts a finished task and observes its duration.
func (r *Recorder) RecordTask(task string, err error, d time.Duration) {
	lbls := Labels{"task": task, "status": status(err)}
	r.backend.IncCounter(TaskTotal, 1, lbls)
	r.backend.ObserveHistogram(TaskDurationSeconds, d.Seconds(), lbls)
}

// RecordRetry counts a retried task attempt.
func (r *Recorder) RecordRetry(task string) {
	r.backend.IncCounter(TaskRetriesTotal, 1, Labels{"task": task})
}

// RecordRun counts a finished run and sets its duration.
func (r *Recorder) RecordRun(err error, d time.Duration) {
	r.backend.IncCounter(RunTotal, 1, Labels{"status": status(err)})
	r.backend.SetGauge(RunDurationSeconds, d.Seconds(), nil)
}

// RecordTableRows sets the row count a quality gate observed.
func (r *Recorder) RecordTableRows(table string, rows int64) {
	r.backend.SetGauge(TableRows, float64(rows), Labels{"table": table})
}

// Flush delegates to the backend.
func (r *Recorder) Flush(ctx context.Context) error {
	return r.backend.Flush(ctx)
}
