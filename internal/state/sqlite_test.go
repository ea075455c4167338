package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapetl/internal/testutil"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	if err := store.Open(context.Background(), ":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion(context.Background())
	if err != nil {
		t.Fatalf("failed to read migration version: %v", err)
	}
	if version != 2 {
		t.Errorf("expected migration version 2, got %d", version)
	}

	for _, table := range []string{"runs", "task_runs", "quality_observations"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
			continue
		}
		_ = rows.Close()
	}
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()

	store := NewSQLiteStore(nil)
	if err := store.Open(ctx, path); err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	run, err := store.CreateRun(ctx, "sparkify", "dev", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// reopening runs no migrations and keeps data
	store = NewSQLiteStore(nil)
	if err := store.Open(ctx, path); err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()
	if _, err := store.GetRun(ctx, run.ID); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	if _, err := store.CreateRun(context.Background(), "p", "", nil); err == nil {
		t.Error("expected error on unopened store")
	}
	if err := store.Close(); err != nil {
		t.Errorf("close of unopened store should be a no-op, got %v", err)
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name       string
		status     core.RunStatus
		errMsg     string
		wantErrMsg string
	}{
		{"completed", core.RunStatusCompleted, "", ""},
		{"failed", core.RunStatusFailed, "task Stage_events: load staging_events", "task Stage_events: load staging_events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()
			execDate := time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)

			run, err := store.CreateRun(ctx, "sparkify", "prod", &execDate)
			if err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
			if run.Status != core.RunStatusRunning {
				t.Errorf("new run status = %s", run.Status)
			}

			if err := store.CompleteRun(ctx, run.ID, tt.status, tt.errMsg); err != nil {
				t.Fatalf("failed to complete run: %v", err)
			}

			got, err := store.GetRun(ctx, run.ID)
			if err != nil {
				t.Fatalf("failed to get run: %v", err)
			}
			if got.Status != tt.status {
				t.Errorf("status = %s, want %s", got.Status, tt.status)
			}
			if got.Error != tt.wantErrMsg {
				t.Errorf("error = %q, want %q", got.Error, tt.wantErrMsg)
			}
			if got.CompletedAt == nil {
				t.Error("completed_at not set")
			}
			if got.ExecutionDate == nil || !got.ExecutionDate.Equal(execDate) {
				t.Errorf("execution date = %v, want %v", got.ExecutionDate, execDate)
			}
			if got.Pipeline != "sparkify" || got.Environment != "prod" {
				t.Errorf("unexpected run identity: %+v", got)
			}
		})
	}
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.CompleteRun(ctx, "missing", core.RunStatusCompleted, ""); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	latest, err := store.GetLatestRun(ctx, "sparkify")
	if err != nil || latest != nil {
		t.Errorf("expected no latest run, got %v, %v", latest, err)
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun(ctx, "sparkify", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("runs not newest first: %s, %s", runs[0].ID, runs[1].ID)
	}

	latest, err := store.GetLatestRun(ctx, "sparkify")
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != ids[2] {
		t.Errorf("latest = %s, want %s", latest.ID, ids[2])
	}
}

func TestSQLiteStore_TaskRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "sparkify", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	started := time.Now().UTC()
	tr := &core.TaskRun{RunID: run.ID, TaskID: "Stage_events", Status: core.TaskRunStatusRunning, Attempts: 1, StartedAt: &started}
	if err := store.SaveTaskRun(ctx, tr); err != nil {
		t.Fatalf("failed to save task run: %v", err)
	}
	if tr.ID == "" {
		t.Fatal("id not assigned")
	}

	done := started.Add(2 * time.Second)
	tr.Status = core.TaskRunStatusFailed
	tr.Attempts = 2
	tr.CompletedAt = &done
	tr.DurationMS = 2000
	tr.Error = "stl_load_errors"
	if err := store.SaveTaskRun(ctx, tr); err != nil {
		t.Fatalf("failed to update task run: %v", err)
	}

	skipped := &core.TaskRun{RunID: run.ID, TaskID: "Load_songplays_fact_table", Status: core.TaskRunStatusSkipped}
	if err := store.SaveTaskRun(ctx, skipped); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetTaskRuns(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get task runs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 task runs, got %d", len(got))
	}
	if got[0].TaskID != "Stage_events" || got[0].Status != core.TaskRunStatusFailed || got[0].Attempts != 2 {
		t.Errorf("unexpected first task run: %+v", got[0])
	}
	if got[0].Error != "stl_load_errors" || got[0].DurationMS != 2000 || got[0].CompletedAt == nil {
		t.Errorf("update not persisted: %+v", got[0])
	}
	if got[1].Status != core.TaskRunStatusSkipped || got[1].StartedAt != nil {
		t.Errorf("unexpected skipped task run: %+v", got[1])
	}
}

func TestSQLiteStore_TaskRunNeedsRun(t *testing.T) {
	store := setupTestStore(t)
	err := store.SaveTaskRun(context.Background(), &core.TaskRun{RunID: "missing", TaskID: "x", Status: core.TaskRunStatusPending})
	if err == nil {
		t.Error("expected foreign key violation")
	}
}

func TestSQLiteStore_Observations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "sparkify", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	obs := []core.Observation{{Table: "songplays", Count: 6820}, {Table: "songs", Count: 14896}}
	if err := store.RecordObservations(ctx, run.ID, obs); err != nil {
		t.Fatalf("failed to record observations: %v", err)
	}
	if err := store.RecordObservations(ctx, run.ID, []core.Observation{{Table: "songs", Count: 14897}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetObservations(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Count != 6820 || got[1].Count != 14897 {
		t.Errorf("unexpected observations: %+v", got)
	}
}
