package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/runner"
	"github.com/leapstack-labs/leapetl/internal/schema"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Tasks         []string
	Downstream    bool
	ExecutionDate string
	CreateTables  bool
	JSONOutput    bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline or selected tasks",
		Long: `Execute the pipeline level by level against the configured target.

Tasks within a level run concurrently, bounded by max_active_tasks. A
failing task is retried per retries and retry_delay; if it still fails,
every later task is skipped and the command exits non-zero.

Use --task to run a subset and --downstream to add everything that
depends on it.`,
		Example: `  # Run the whole pipeline
  leapetl run

  # Load one day's partition of the event logs
  leapetl run --execution-date 2018-11-15

  # Rebuild the fact table and everything after it
  leapetl run --task Load_songplays_fact_table --downstream

  # Run with JSON event lines for CI/CD integration
  leapetl run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Tasks, "task", nil, "Comma-separated list of task IDs to run")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", false, "Include downstream tasks when using --task")
	cmd.Flags().StringVar(&opts.ExecutionDate, "execution-date", "", "Logical date of the run (YYYY-MM-DD or RFC 3339); selects partitioned sources")
	cmd.Flags().BoolVar(&opts.CreateTables, "create-tables", false, "Create missing warehouse tables before running")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	execDate, err := parseExecutionDate(opts.ExecutionDate)
	if err != nil {
		return err
	}
	if err := cfg.ValidateConnections(); err != nil {
		return err
	}

	p, err := cmdCtx.Pipeline()
	if err != nil {
		return err
	}
	if len(opts.Tasks) > 0 {
		if p, err = p.Select(opts.Tasks, opts.Downstream); err != nil {
			return err
		}
	} else if opts.Downstream {
		return fmt.Errorf("--downstream requires --task")
	}

	wh, err := cmdCtx.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	if opts.CreateTables {
		if err := schema.Apply(ctx, wh, cmdCtx.Logger); err != nil {
			return err
		}
	}

	store, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := cmdCtx.Metrics()
	if err != nil {
		return err
	}

	var onEvent func(runner.Event)
	if opts.JSONOutput {
		onEvent = func(ev runner.Event) { _ = r.JSONLine(ev) }
	} else {
		onEvent = textProgress(r)
	}

	run := runner.New(p, wh, cmdCtx.Credentials(),
		runner.WithStore(store),
		runner.WithMetrics(rec),
		runner.WithLogger(cmdCtx.Logger),
		runner.WithEnvironment(cfg.Environment),
		runner.WithEventHandler(onEvent),
	)

	res, runErr := run.Run(ctx, execDate)

	if err := rec.Flush(context.WithoutCancel(ctx)); err != nil {
		cmdCtx.Logger.Warn("failed to push metrics", "error", err)
	}

	if res != nil && !opts.JSONOutput {
		if r.EffectiveMode() == output.ModeJSON {
			if err := r.JSON(runSummary(res, runErr)); err != nil {
				return err
			}
		} else {
			renderRunSummary(r, res)
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// parseExecutionDate accepts a date or an RFC 3339 timestamp. Empty means
// no execution date.
func parseExecutionDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid --execution-date %q: want YYYY-MM-DD or RFC 3339", s)
}

// textProgress prints one line per finished task.
func textProgress(r *output.Renderer) func(runner.Event) {
	return func(ev runner.Event) {
		switch ev.Type {
		case runner.EventRunStarted:
			r.Muted("run " + ev.RunID)
		case runner.EventTaskRetry:
			r.Warning(fmt.Sprintf("%s retrying (attempt %d)", ev.TaskID, ev.Attempt))
		case runner.EventTaskFinished:
			line := fmt.Sprintf("%s (%s)", ev.TaskID, (time.Duration(ev.DurationMS) * time.Millisecond).String())
			if ev.Error != "" {
				r.Error(line + ": " + ev.Error)
				return
			}
			r.Success(line)
		case runner.EventTaskSkipped:
			r.Muted(ev.TaskID + " skipped")
		}
	}
}

func runSummary(res *runner.Result, runErr error) output.RunSummary {
	out := output.RunSummary{
		RunID:        res.RunID,
		Status:       string(res.Status),
		Observations: res.Observations,
		DurationMS:   res.Duration.Milliseconds(),
		Tasks:        make([]output.TaskSummary, 0, len(res.Tasks)),
	}
	for _, tr := range res.Tasks {
		out.Tasks = append(out.Tasks, taskSummary(tr))
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	return out
}

func renderRunSummary(r *output.Renderer, res *runner.Result) {
	r.Println("")
	r.Header(2, "Summary")

	if len(res.Observations) > 0 {
		rows := make([][]string, 0, len(res.Observations))
		for _, o := range res.Observations {
			rows = append(rows, []string{o.Table, fmt.Sprintf("%d", o.Count)})
		}
		r.Table([]string{"table", "records"}, rows)
	}

	counts := map[string]int{}
	for _, tr := range res.Tasks {
		counts[string(tr.Status)]++
	}
	var parts []string
	for _, s := range []string{"success", "failed", "skipped"} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	r.Println(fmt.Sprintf("Run %s %s in %s: %s", res.RunID, res.Status,
		res.Duration.Round(time.Millisecond), strings.Join(parts, ", ")))
}
