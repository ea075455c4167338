package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapetl/internal/cli/output"
	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the task graph",
		Long: `Display the task graph of the pipeline.

Tasks are grouped by execution level, showing which tasks run in
parallel and their dependency relationships.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the DAG
  leapetl dag

  # Output as JSON
  leapetl dag --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd)
		},
	}

	return cmd
}

func runDAG(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	p, err := cmdCtx.Pipeline()
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(dagOutput(p))
	case output.ModeMarkdown:
		dagMarkdown(r, p)
	default:
		dagText(r, p)
	}
	return nil
}

func taskTarget(t pipeline.Task) string {
	if t.Kind == pipeline.KindLoad && t.Load != nil {
		return fmt.Sprintf("%s (%s, %s)", t.Load.Table, t.Load.Role, t.Load.Mode)
	}
	return t.Target()
}

// dagText outputs the DAG in styled text format.
func dagText(r *output.Renderer, p *pipeline.Pipeline) {
	styles := r.Styles()

	r.Header(1, "Task Graph: "+p.Name)

	for i, level := range p.Levels() {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, id := range level {
			t, _ := p.Task(id)
			line := "  " + styles.TaskID.Render(id)
			if target := taskTarget(t); target != "" {
				line += " " + styles.Muted.Render("-> "+target)
			}
			r.Println(line)
			if deps := p.Parents(id); len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d tasks, %d dependencies", len(p.Tasks()), p.EdgeCount())))
}

// dagMarkdown outputs the DAG in markdown format.
func dagMarkdown(r *output.Renderer, p *pipeline.Pipeline) {
	r.Println(output.FormatHeader(1, "Task Graph: "+p.Name))
	r.Println("")

	for i, level := range p.Levels() {
		r.Println(output.FormatHeader(2, fmt.Sprintf("Level %d", i)))
		for _, id := range level {
			t, _ := p.Task(id)
			if target := taskTarget(t); target != "" {
				r.Printf("- %s -> %s\n", id, target)
			} else {
				r.Printf("- %s\n", id)
			}
			if deps := p.Parents(id); len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Tasks", fmt.Sprintf("%d", len(p.Tasks()))))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", p.EdgeCount())))
}

// dagOutput builds the JSON form of the DAG.
func dagOutput(p *pipeline.Pipeline) output.DAGOutput {
	levels := p.Levels()
	out := output.DAGOutput{
		Pipeline:   p.Name,
		Levels:     make([]output.DAGLevel, 0, len(levels)),
		TotalTasks: len(p.Tasks()),
		TotalEdges: p.EdgeCount(),
	}

	for i, level := range levels {
		dl := output.DAGLevel{Level: i, Tasks: make([]output.DAGNode, 0, len(level))}
		for _, id := range level {
			t, _ := p.Task(id)
			dl.Tasks = append(dl.Tasks, output.DAGNode{
				ID:        id,
				Kind:      string(t.Kind),
				Target:    t.Target(),
				DependsOn: p.Parents(id),
				UsedBy:    p.Children(id),
			})
		}
		out.Levels = append(out.Levels, dl)
	}
	return out
}
