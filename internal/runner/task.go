package runner

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leapetl/internal/operators"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/sethvargo/go-retry"
)

// runTask executes one operator with the pipeline's retry policy and
// records its task run.
func (r *Runner) runTask(ctx context.Context, op operators.Operator, tr *core.TaskRun, rc operators.RunContext) ([]core.Observation, error) {
	start := time.Now().UTC()
	tr.Status = core.TaskRunStatusRunning
	tr.StartedAt = &start
	r.save(ctx, tr)

	r.logger.Info("task started", "task", tr.TaskID)
	r.emit(Event{Type: EventTaskStarted, RunID: tr.RunID, TaskID: tr.TaskID, Status: string(tr.Status)})

	var observations []core.Observation
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		tr.Attempts++
		if tr.Attempts > 1 {
			r.metrics.RecordRetry(tr.TaskID)
			r.logger.Warn("retrying task", "task", tr.TaskID, "attempt", tr.Attempts)
			r.emit(Event{Type: EventTaskRetry, RunID: tr.RunID, TaskID: tr.TaskID, Attempt: tr.Attempts})
		}

		obs, err := execute(ctx, op, rc)
		observations = obs
		if err == nil {
			return nil
		}
		r.logger.Debug("task attempt failed", "task", tr.TaskID, "attempt", tr.Attempts, "error", err)
		if !retryable(err) {
			return err
		}
		return retry.RetryableError(err)
	})

	done := time.Now().UTC()
	tr.CompletedAt = &done
	tr.DurationMS = done.Sub(start).Milliseconds()
	tr.Status = core.TaskRunStatusSuccess
	if err != nil {
		tr.Status = core.TaskRunStatusFailed
		tr.Error = err.Error()
		r.logger.Error("task failed", "task", tr.TaskID, "attempts", tr.Attempts, "error", err)
	} else {
		r.logger.Info("task succeeded", "task", tr.TaskID, "duration_ms", tr.DurationMS)
	}
	r.save(ctx, tr)
	r.metrics.RecordTask(tr.TaskID, err, done.Sub(start))

	ev := Event{Type: EventTaskFinished, RunID: tr.RunID, TaskID: tr.TaskID, Status: string(tr.Status),
		Attempt: tr.Attempts, DurationMS: tr.DurationMS, Observations: observations}
	if err != nil {
		ev.Error = err.Error()
	}
	r.emit(ev)

	return observations, err
}

// execute runs an operator, collecting observations from quality gates.
func execute(ctx context.Context, op operators.Operator, rc operators.RunContext) ([]core.Observation, error) {
	if q, ok := op.(*operators.QualityOperator); ok {
		return q.Check(ctx)
	}
	return nil, op.Execute(ctx, rc)
}

// retryable reports whether another attempt could succeed. Configuration
// errors cannot.
func retryable(err error) bool {
	var cfgErr *operators.ConfigError
	return !errors.As(err, &cfgErr)
}

func (r *Runner) backoff() retry.Backoff {
	retries := r.pipeline.Args.Retries
	if retries < 0 {
		retries = 0
	}
	delay := r.pipeline.Args.RetryDelay
	if delay <= 0 {
		delay = time.Nanosecond
	}
	return retry.WithMaxRetries(uint64(retries), retry.NewConstant(delay))
}
