package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// SaveTaskRun inserts or updates a task run keyed by (run_id, task_id).
func (s *SQLiteStore) SaveTaskRun(ctx context.Context, tr *core.TaskRun) error {
	if s.db == nil {
		return errNotOpened
	}
	if tr.ID == "" {
		tr.ID = generateID()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_runs (id, run_id, task_id, status, attempts, started_at, completed_at, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, task_id) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			duration_ms = excluded.duration_ms,
			error = excluded.error`,
		tr.ID, tr.RunID, tr.TaskID, string(tr.Status), tr.Attempts,
		nullTime(tr.StartedAt), nullTime(tr.CompletedAt), tr.DurationMS, nullString(tr.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to save task run %s: %w", tr.TaskID, err)
	}
	return nil
}

// GetTaskRuns returns the task runs of a run in start order.
func (s *SQLiteStore) GetTaskRuns(ctx context.Context, runID string) ([]*core.TaskRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, task_id, status, attempts, started_at, completed_at, duration_ms, error
		FROM task_runs WHERE run_id = ?
		ORDER BY started_at IS NULL, started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task runs: %w", err)
	}
	defer rows.Close()

	var out []*core.TaskRun
	for rows.Next() {
		var (
			tr        core.TaskRun
			status    string
			startedAt sql.NullTime
			doneAt    sql.NullTime
			errMsg    sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.RunID, &tr.TaskID, &status, &tr.Attempts,
			&startedAt, &doneAt, &tr.DurationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan task run: %w", err)
		}
		tr.Status = core.TaskRunStatus(status)
		tr.StartedAt = timePtr(startedAt)
		tr.CompletedAt = timePtr(doneAt)
		tr.Error = errMsg.String
		out = append(out, &tr)
	}
	return out, rows.Err()
}

// RecordObservations stores the row counts seen by a quality gate.
func (s *SQLiteStore) RecordObservations(ctx context.Context, runID string, obs []core.Observation) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, o := range obs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quality_observations (run_id, table_name, row_count, observed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (run_id, table_name) DO UPDATE SET
				row_count = excluded.row_count,
				observed_at = excluded.observed_at`,
			runID, o.Table, o.Count, now)
		if err != nil {
			return fmt.Errorf("failed to record observation for %s: %w", o.Table, err)
		}
	}
	return tx.Commit()
}

// GetObservations returns the recorded row counts of a run.
func (s *SQLiteStore) GetObservations(ctx context.Context, runID string) ([]core.Observation, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name, row_count FROM quality_observations WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get observations: %w", err)
	}
	defer rows.Close()

	var out []core.Observation
	for rows.Next() {
		var o core.Observation
		if err := rows.Scan(&o.Table, &o.Count); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
