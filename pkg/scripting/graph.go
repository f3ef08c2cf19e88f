// Graph is the parser's item DAG, adapted from the teacher's
// pkg/planner/graph.go (nodeIndex/outgoing/incoming maps, DetectCycles via
// DFS) with string plan-node ids replaced by the parser's uint32 item ids.
package scripting

import (
	"fmt"
)

// Graph is a directed acyclic graph of script items.
type Graph struct {
	Items []uint32

	itemSet  map[uint32]bool
	outgoing map[uint32][]uint32 // id -> successor ids
	incoming map[uint32][]uint32 // id -> predecessor ids
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		itemSet:  make(map[uint32]bool),
		outgoing: make(map[uint32][]uint32),
		incoming: make(map[uint32][]uint32),
	}
}

// AddItem registers a node with no edges yet.
func (g *Graph) AddItem(id uint32) {
	if g.itemSet[id] {
		return
	}
	g.itemSet[id] = true
	g.Items = append(g.Items, id)
}

// AddLink records that "to" depends on "from" (from must be computed first).
func (g *Graph) AddLink(from, to uint32) {
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
}

// Predecessors returns the ids that "id" directly depends on.
func (g *Graph) Predecessors(id uint32) []uint32 {
	return g.incoming[id]
}

// Successors returns the ids that directly depend on "id".
func (g *Graph) Successors(id uint32) []uint32 {
	return g.outgoing[id]
}

// DetectCycles reports a cycle, if any, via DFS with a recursion stack —
// ported directly from the teacher's dfsCheckCycle.
func (g *Graph) DetectCycles() error {
	visited := make(map[uint32]bool)
	recStack := make(map[uint32]bool)

	for _, id := range g.Items {
		if !visited[id] {
			if err := g.dfsCheckCycle(id, visited, recStack); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) dfsCheckCycle(id uint32, visited, recStack map[uint32]bool) error {
	visited[id] = true
	recStack[id] = true

	for _, successor := range g.outgoing[id] {
		if !visited[successor] {
			if err := g.dfsCheckCycle(successor, visited, recStack); err != nil {
				return err
			}
		} else if recStack[successor] {
			return fmt.Errorf("cycle detected: %d -> %d", id, successor)
		}
	}

	recStack[id] = false
	return nil
}

// TopologicalSort performs Kahn's algorithm over item ids, ported from the
// teacher's pkg/planner/sort.go.
func (g *Graph) TopologicalSort() ([]uint32, error) {
	inDegree := make(map[uint32]int, len(g.Items))
	for _, id := range g.Items {
		inDegree[id] = len(g.incoming[id])
	}

	queue := []uint32{}
	for _, id := range g.Items {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	result := make([]uint32, 0, len(g.Items))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, succ := range g.outgoing[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(result) != len(g.Items) {
		return nil, fmt.Errorf("graph contains a cycle (processed %d/%d items)", len(result), len(g.Items))
	}

	return result, nil
}

// ComputeExecutionStages groups items into stages where every item in a
// stage has all of its dependencies satisfied by earlier stages — ported
// from the teacher's ComputeExecutionStages. Items within one stage have no
// dependency on each other and so compile to a Par node; stages themselves
// become an ordered Seq.
func (g *Graph) ComputeExecutionStages() ([][]uint32, error) {
	inDegree := make(map[uint32]int, len(g.Items))
	for _, id := range g.Items {
		inDegree[id] = len(g.incoming[id])
	}

	stages := [][]uint32{}
	processed := make(map[uint32]bool, len(g.Items))

	for len(processed) < len(g.Items) {
		stage := []uint32{}

		for _, id := range g.Items {
			if !processed[id] && inDegree[id] == 0 {
				stage = append(stage, id)
			}
		}

		if len(stage) == 0 {
			return nil, fmt.Errorf("cannot compute execution stages (possible cycle)")
		}

		stages = append(stages, stage)

		for _, id := range stage {
			processed[id] = true
			for _, succ := range g.outgoing[id] {
				inDegree[succ]--
			}
		}
	}

	return stages, nil
}
