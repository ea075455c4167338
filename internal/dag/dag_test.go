package dag

import (
	"errors"
	"reflect"
	"testing"
)

// diamond builds begin -> {left, right} -> end.
func diamond(t *testing.T) *Graph[int] {
	t.Helper()
	g := NewGraph[int]()
	for i, id := range []string{"begin", "left", "right", "end"} {
		g.AddNode(id, i)
	}
	for _, e := range [][2]string{{"begin", "left"}, {"begin", "right"}, {"left", "end"}, {"right", "end"}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := diamond(t)

	if g.NodeCount() != 4 {
		t.Errorf("expected 4 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 4 {
		t.Errorf("expected 4 edges, got %d", g.EdgeCount())
	}

	// duplicate edges are ignored
	if err := g.AddEdge("begin", "left"); err != nil {
		t.Fatal(err)
	}
	if g.EdgeCount() != 4 {
		t.Errorf("duplicate edge counted, got %d", g.EdgeCount())
	}
}

func TestGraph_AddNode_ReplacesData(t *testing.T) {
	g := NewGraph[string]()
	g.AddNode("a", "first")
	g.AddNode("a", "second")

	n, ok := g.GetNode("a")
	if !ok || n.Data != "second" {
		t.Errorf("expected data to be replaced, got %+v", n)
	}
	if g.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", g.NodeCount())
	}
}

func TestGraph_AddEdge_Invalid(t *testing.T) {
	g := NewGraph[struct{}]()
	g.AddNode("a", struct{}{})

	if err := g.AddEdge("a", "missing"); err == nil {
		t.Error("expected error for nonexistent child node")
	}
	if err := g.AddEdge("missing", "a"); err == nil {
		t.Error("expected error for nonexistent parent node")
	}
	if err := g.AddEdge("a", "a"); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_ParentsAndChildren(t *testing.T) {
	g := diamond(t)

	if got := g.GetParents("end"); !reflect.DeepEqual(got, []string{"left", "right"}) {
		t.Errorf("parents of end = %v", got)
	}
	if got := g.GetChildren("begin"); !reflect.DeepEqual(got, []string{"left", "right"}) {
		t.Errorf("children of begin = %v", got)
	}
}

func TestGraph_Cycle(t *testing.T) {
	g := diamond(t)
	if hasCycle, _ := g.HasCycle(); hasCycle {
		t.Fatal("diamond should be acyclic")
	}

	if err := g.AddEdge("end", "begin"); err != nil {
		t.Fatal(err)
	}
	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle")
	}
	if len(path) < 3 || path[0] != path[len(path)-1] {
		t.Errorf("cycle path should start and end on the same node, got %v", path)
	}

	var cycleErr *CycleError
	if err := g.Validate(); !errors.As(err, &cycleErr) {
		t.Errorf("expected *CycleError, got %v", err)
	}
	if _, err := g.GetExecutionLevels(); err == nil {
		t.Error("expected levels to fail on a cyclic graph")
	}
	if _, err := g.TopologicalSort(); err == nil {
		t.Error("expected sort to fail on a cyclic graph")
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := diamond(t)

	nodes, err := g.TopologicalSort()
	if err != nil {
		t.Fatal(err)
	}

	pos := make(map[string]int)
	for i, n := range nodes {
		pos[n.ID] = i
	}
	for _, n := range g.GetAllNodes() {
		for _, p := range g.GetParents(n.ID) {
			if pos[p] > pos[n.ID] {
				t.Errorf("%s sorted after its dependent %s", p, n.ID)
			}
		}
	}
}

func TestGraph_GetExecutionLevels(t *testing.T) {
	g := diamond(t)
	g.AddNode("late", 9)
	if err := g.AddEdge("left", "late"); err != nil {
		t.Fatal(err)
	}

	levels, err := g.GetExecutionLevels()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{{"begin"}, {"left", "right"}, {"end", "late"}}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("levels = %v, want %v", levels, want)
	}
}

func TestGraph_GetExecutionLevels_Empty(t *testing.T) {
	levels, err := NewGraph[int]().GetExecutionLevels()
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 0 {
		t.Errorf("expected no levels, got %v", levels)
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := diamond(t)

	if got := g.GetRoots(); !reflect.DeepEqual(got, []string{"begin"}) {
		t.Errorf("roots = %v", got)
	}
	if got := g.GetLeaves(); !reflect.DeepEqual(got, []string{"end"}) {
		t.Errorf("leaves = %v", got)
	}
}

func TestGraph_UpstreamAndDownstream(t *testing.T) {
	g := diamond(t)

	if got := g.GetUpstreamNodes("end"); !reflect.DeepEqual(got, []string{"begin", "left", "right"}) {
		t.Errorf("upstream of end = %v", got)
	}
	if got := g.GetUpstreamNodes("begin"); len(got) != 0 {
		t.Errorf("upstream of begin = %v", got)
	}
	if got := g.GetDownstreamNodes([]string{"left", "missing"}); !reflect.DeepEqual(got, []string{"end", "left"}) {
		t.Errorf("downstream of left = %v", got)
	}
}

func TestGraph_Subgraph(t *testing.T) {
	g := diamond(t)

	sub := g.Subgraph([]string{"left", "end", "missing"})
	if sub.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", sub.NodeCount())
	}
	if sub.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", sub.EdgeCount())
	}
	if got := sub.GetRoots(); !reflect.DeepEqual(got, []string{"left"}) {
		t.Errorf("subgraph roots = %v", got)
	}
	n, _ := sub.GetNode("end")
	if n.Data != 3 {
		t.Errorf("subgraph lost node data, got %d", n.Data)
	}
}
