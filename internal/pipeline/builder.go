package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapetl/internal/dag"
)

// Builder assembles a Pipeline. Errors are collected and reported by Build.
type Builder struct {
	name  string
	args  DefaultArgs
	graph *dag.Graph[Task]
	order []string
	errs  []error
}

// NewBuilder creates a builder for a named pipeline.
func NewBuilder(name string, args DefaultArgs) *Builder {
	return &Builder{
		name:  name,
		args:  args,
		graph: dag.NewGraph[Task](),
	}
}

// AddTask registers a task. Duplicate IDs are an error.
func (b *Builder) AddTask(t Task) *Builder {
	if _, exists := b.graph.GetNode(t.ID); exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate task %q", t.ID))
		return b
	}
	b.graph.AddNode(t.ID, t)
	b.order = append(b.order, t.ID)
	return b
}

// AddDependency declares that downstream runs only after upstream succeeded.
func (b *Builder) AddDependency(upstream, downstream string) *Builder {
	if err := b.graph.AddEdge(upstream, downstream); err != nil {
		b.errs = append(b.errs, fmt.Errorf("dependency %s -> %s: %w", upstream, downstream, err))
	}
	return b
}

// Build validates every task and the graph shape and returns the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.name == "" {
		b.errs = append(b.errs, errors.New("pipeline name is required"))
	}
	if b.graph.NodeCount() == 0 {
		b.errs = append(b.errs, errors.New("pipeline has no tasks"))
	}
	for _, id := range b.order {
		n, _ := b.graph.GetNode(id)
		if err := n.Data.Validate(); err != nil {
			b.errs = append(b.errs, err)
		}
	}
	if err := b.graph.Validate(); err != nil {
		b.errs = append(b.errs, err)
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	levels, err := b.graph.GetExecutionLevels()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Name:   b.name,
		Args:   b.args,
		graph:  b.graph,
		levels: levels,
		order:  slices.Clone(b.order),
	}, nil
}
