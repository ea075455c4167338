package pipeline

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapetl/internal/dag"
)

// Pipeline is an immutable, validated task graph.
type Pipeline struct {
	Name string
	Args DefaultArgs

	graph  *dag.Graph[Task]
	levels [][]string
	order  []string // declaration order
}

// Task returns a copy of the task with the given ID.
func (p *Pipeline) Task(id string) (Task, bool) {
	n, ok := p.graph.GetNode(id)
	if !ok {
		return Task{}, false
	}
	return n.Data.clone(), true
}

// Tasks returns all tasks in declaration order.
func (p *Pipeline) Tasks() []Task {
	tasks := make([]Task, 0, len(p.order))
	for _, id := range p.order {
		t, _ := p.Task(id)
		tasks = append(tasks, t)
	}
	return tasks
}

// Levels returns task IDs grouped by execution level. Tasks of one level
// have no dependencies on each other.
func (p *Pipeline) Levels() [][]string {
	out := make([][]string, len(p.levels))
	for i, l := range p.levels {
		out[i] = slices.Clone(l)
	}
	return out
}

// Roots returns the tasks with no upstream dependencies.
func (p *Pipeline) Roots() []string { return p.graph.GetRoots() }

// Leaves returns the tasks nothing depends on.
func (p *Pipeline) Leaves() []string { return p.graph.GetLeaves() }

// Parents returns the direct upstream tasks of id.
func (p *Pipeline) Parents(id string) []string { return p.graph.GetParents(id) }

// Children returns the direct downstream tasks of id.
func (p *Pipeline) Children(id string) []string { return p.graph.GetChildren(id) }

// Upstream returns every task id transitively depends on.
func (p *Pipeline) Upstream(id string) []string { return p.graph.GetUpstreamNodes(id) }

// Downstream returns ids plus every task that transitively depends on them.
func (p *Pipeline) Downstream(ids ...string) []string { return p.graph.GetDownstreamNodes(ids) }

// EdgeCount returns the number of dependencies.
func (p *Pipeline) EdgeCount() int { return p.graph.EdgeCount() }

// Select returns a pipeline restricted to the given tasks, optionally
// extended with everything downstream of them.
func (p *Pipeline) Select(ids []string, downstream bool) (*Pipeline, error) {
	for _, id := range ids {
		if _, ok := p.graph.GetNode(id); !ok {
			return nil, fmt.Errorf("unknown task %q", id)
		}
	}
	if downstream {
		ids = p.graph.GetDownstreamNodes(ids)
	}

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	sub := p.graph.Subgraph(ids)
	levels, err := sub.GetExecutionLevels()
	if err != nil {
		return nil, err
	}

	var order []string
	for _, id := range p.order {
		if keep[id] {
			order = append(order, id)
		}
	}

	return &Pipeline{
		Name:   p.Name,
		Args:   p.Args,
		graph:  sub,
		levels: levels,
		order:  order,
	}, nil
}
