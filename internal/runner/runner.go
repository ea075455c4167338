// Package runner executes a pipeline in-process.
//
// Tasks run level by level; tasks within a level run concurrently up to the
// pipeline's max_active_tasks. Each task is retried with a constant backoff
// from the pipeline's retries and retry_delay. When a level has a failed
// task, every later task is recorded as skipped and the run fails.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapetl/internal/metrics"
	"github.com/leapstack-labs/leapetl/internal/operators"
	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/leapstack-labs/leapetl/internal/state"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Runner executes a pipeline against a warehouse.
type Runner struct {
	pipeline  *pipeline.Pipeline
	warehouse operators.Warehouse
	creds     operators.CredentialResolver

	store   state.Store
	metrics *metrics.Recorder
	logger  *slog.Logger
	env     string
	onEvent func(Event)

	eventMu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore records runs and task runs in store.
func WithStore(store state.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithMetrics records task and run metrics.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = rec }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithEnvironment labels recorded runs with an environment name.
func WithEnvironment(env string) Option {
	return func(r *Runner) { r.env = env }
}

// WithEventHandler receives lifecycle events. Calls are serialized.
func WithEventHandler(fn func(Event)) Option {
	return func(r *Runner) { r.onEvent = fn }
}

// New creates a Runner.
func New(p *pipeline.Pipeline, wh operators.Warehouse, creds operators.CredentialResolver, opts ...Option) *Runner {
	r := &Runner{
		pipeline:  p,
		warehouse: wh,
		creds:     creds,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.metrics == nil {
		r.metrics = metrics.NewRecorder(nil)
	}
	return r
}

// Result summarizes a finished run.
type Result struct {
	RunID        string
	Status       core.RunStatus
	Tasks        []*core.TaskRun // declaration order
	Observations []core.Observation
	Duration     time.Duration
}

// Task returns the task run for id, or nil.
func (res *Result) Task(id string) *core.TaskRun {
	for _, tr := range res.Tasks {
		if tr.TaskID == id {
			return tr
		}
	}
	return nil
}

// Run executes every task of the pipeline. executionDate, when set, selects
// partitioned stage sources. The returned Result is non-nil whenever the
// run was started, including when it failed.
func (r *Runner) Run(ctx context.Context, executionDate *time.Time) (*Result, error) {
	start := time.Now()
	r.logger.Info("starting run", "pipeline", r.pipeline.Name, "environment", r.env)

	ops, err := r.prepare()
	if err != nil {
		return nil, err
	}

	runID, err := r.createRun(ctx, executionDate)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: runID}
	taskRuns := make(map[string]*core.TaskRun)
	for _, t := range r.pipeline.Tasks() {
		tr := &core.TaskRun{RunID: runID, TaskID: t.ID, Status: core.TaskRunStatusPending}
		taskRuns[t.ID] = tr
		res.Tasks = append(res.Tasks, tr)
		r.save(ctx, tr)
	}

	r.emit(Event{Type: EventRunStarted, RunID: runID})

	rc := operators.RunContext{RunID: runID, ExecutionDate: executionDate}
	var (
		mu       sync.Mutex
		failures []error
	)

	for _, level := range r.pipeline.Levels() {
		if len(failures) > 0 || ctx.Err() != nil {
			for _, id := range level {
				r.skip(ctx, taskRuns[id])
			}
			continue
		}

		var g errgroup.Group
		g.SetLimit(r.maxActive())
		for _, id := range level {
			g.Go(func() error {
				obs, err := r.runTask(ctx, ops[id], taskRuns[id], rc)
				mu.Lock()
				defer mu.Unlock()
				res.Observations = append(res.Observations, obs...)
				if err != nil {
					failures = append(failures, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	runErr := errors.Join(failures...)
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	res.Duration = time.Since(start)
	res.Status = core.RunStatusCompleted
	if runErr != nil {
		res.Status = core.RunStatusFailed
	}

	r.finishRun(ctx, res, runErr)
	return res, runErr
}

// prepare builds every operator before anything touches the warehouse.
func (r *Runner) prepare() (map[string]operators.Operator, error) {
	ops := make(map[string]operators.Operator)
	for _, t := range r.pipeline.Tasks() {
		op, err := operators.New(t, r.warehouse, r.creds, r.logger)
		if err != nil {
			return nil, err
		}
		ops[t.ID] = op
	}
	return ops, nil
}

func (r *Runner) maxActive() int {
	if n := r.pipeline.Args.MaxActiveTasks; n > 0 {
		return n
	}
	return pipeline.DefaultMaxActiveTasks
}

func (r *Runner) createRun(ctx context.Context, executionDate *time.Time) (string, error) {
	if r.store == nil {
		return uuid.New().String(), nil
	}
	run, err := r.store.CreateRun(ctx, r.pipeline.Name, r.env, executionDate)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	r.logger.Debug("created run", "run_id", run.ID)
	return run.ID, nil
}

func (r *Runner) finishRun(ctx context.Context, res *Result, runErr error) {
	// Record the outcome even when ctx was cancelled.
	ctx = context.WithoutCancel(ctx)

	if runErr != nil {
		r.logger.Error("run failed", "run_id", res.RunID, "error", runErr.Error())
	} else {
		r.logger.Info("run completed", "run_id", res.RunID, "duration", res.Duration)
	}

	if r.store != nil {
		errMsg := ""
		if runErr != nil {
			errMsg = runErr.Error()
		}
		if err := r.store.CompleteRun(ctx, res.RunID, res.Status, errMsg); err != nil {
			r.logger.Warn("failed to record run completion", "run_id", res.RunID, "error", err)
		}
		if len(res.Observations) > 0 {
			if err := r.store.RecordObservations(ctx, res.RunID, res.Observations); err != nil {
				r.logger.Warn("failed to record quality observations", "run_id", res.RunID, "error", err)
			}
		}
	}

	r.metrics.RecordRun(runErr, res.Duration)
	for _, o := range res.Observations {
		r.metrics.RecordTableRows(o.Table, o.Count)
	}

	ev := Event{Type: EventRunFinished, RunID: res.RunID, Status: string(res.Status), DurationMS: res.Duration.Milliseconds()}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	r.emit(ev)
}

func (r *Runner) save(ctx context.Context, tr *core.TaskRun) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveTaskRun(context.WithoutCancel(ctx), tr); err != nil {
		r.logger.Warn("failed to record task run", "task", tr.TaskID, "error", err)
	}
}

func (r *Runner) skip(ctx context.Context, tr *core.TaskRun) {
	tr.Status = core.TaskRunStatusSkipped
	tr.Error = "upstream task failed"
	r.save(ctx, tr)
	r.logger.Info("task skipped", "task", tr.TaskID)
	r.emit(Event{Type: EventTaskSkipped, RunID: tr.RunID, TaskID: tr.TaskID, Status: string(tr.Status)})
}
