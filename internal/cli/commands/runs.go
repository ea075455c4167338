package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/spf13/cobra"
)

// DefaultRunsLimit is the number of runs listed when --limit is not set.
const DefaultRunsLimit = 20

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		Long:  `List the most recent pipeline runs recorded in the state database.`,
		Example: `  # Last 20 runs
  leapetl runs

  # Details of one run
  leapetl runs show 3f0c...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultRunsLimit, "Maximum number of runs to list")
	cmd.AddCommand(newRunsShowCommand())

	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the tasks and observations of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, args[0])
		},
	}
}

func runRuns(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	store, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := output.RunsOutput{Runs: make([]output.RunInfo, 0, len(runs))}
		for _, run := range runs {
			out.Runs = append(out.Runs, output.NewRunInfo(run))
		}
		return r.JSON(out)
	}

	if len(runs) == 0 {
		r.Muted("no runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			string(run.Status),
			formatDate(run.ExecutionDate),
			run.StartedAt.Local().Format(time.DateTime),
			runDuration(run),
		})
	}
	r.Table([]string{"run", "status", "execution date", "started", "duration"}, rows)
	return nil
}

func runRunsShow(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	tasks, err := store.GetTaskRuns(ctx, id)
	if err != nil {
		return err
	}
	obs, err := store.GetObservations(ctx, id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		summary := output.RunSummary{RunID: run.ID, Status: string(run.Status), Error: run.Error, Observations: obs}
		if run.CompletedAt != nil {
			summary.DurationMS = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
		}
		for _, tr := range tasks {
			summary.Tasks = append(summary.Tasks, taskSummary(tr))
		}
		return r.JSON(summary)
	}

	r.Header(1, "Run "+run.ID)
	r.Println(output.FormatKeyValue("Pipeline", run.Pipeline))
	r.Println(output.FormatKeyValue("Environment", run.Environment))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Execution date", formatDate(run.ExecutionDate)))
	r.Println(output.FormatKeyValue("Duration", runDuration(run)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	rows := make([][]string, 0, len(tasks))
	for _, tr := range tasks {
		rows = append(rows, []string{
			tr.TaskID,
			string(tr.Status),
			fmt.Sprintf("%d", tr.Attempts),
			(time.Duration(tr.DurationMS) * time.Millisecond).String(),
			tr.Error,
		})
	}
	r.Header(2, "Tasks")
	r.Table([]string{"task", "status", "attempts", "duration", "error"}, rows)

	if len(obs) > 0 {
		rows = rows[:0]
		for _, o := range obs {
			rows = append(rows, []string{o.Table, fmt.Sprintf("%d", o.Count)})
		}
		r.Header(2, "Observations")
		r.Table([]string{"table", "records"}, rows)
	}
	return nil
}

func taskSummary(tr *core.TaskRun) output.TaskSummary {
	return output.TaskSummary{
		TaskID:     tr.TaskID,
		Status:     string(tr.Status),
		Attempts:   tr.Attempts,
		DurationMS: tr.DurationMS,
		Error:      tr.Error,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
