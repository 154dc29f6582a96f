// Package dag provides the directed dependency graph behind execution
// planning. It supports cycle detection with path reporting, stable
// topological sorting, and level grouping for parallel execution.
package dag

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one vertex of the graph.
type Node struct {
	// ID is the unique step identifier.
	ID string
	// Data holds arbitrary node data.
	Data any
}

// Graph is a directed graph of pipeline steps. Determinism matters:
// every traversal breaks ties by node insertion order, so two plans
// built from the same file always agree.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // insertion order of node IDs
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node. Adding an existing ID updates its data and keeps
// its original position.
func (g *Graph) AddNode(id string, data any) {
	if node, exists := g.nodes[id]; exists {
		node.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from parent to child (child depends on
// parent). Self-edges are accepted here and surface later through
// HasCycle, so callers report every circularity the same way.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("unknown node %q", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("unknown node %q", childID)
	}
	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// Parents returns the dependencies of a node.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Children returns the dependents of a node.
func (g *Graph) Children(id string) []string {
	return g.edges[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle reports whether the graph contains a cycle. When it does,
// the returned path lists the nodes along the cycle, starting and
// ending at the same node.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				cameFrom[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = cameFrom[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}
	return false, nil
}

// TopologicalSort returns the nodes dependency-first. Nodes that could
// run in either order appear in insertion order. Returns an error when
// the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %s", strings.Join(cyclePath, " -> "))
	}

	indegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indegree[id] = len(g.parents[id])
	}

	result := make([]*Node, 0, len(g.order))
	emitted := make(map[string]bool, len(g.order))
	for len(result) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if emitted[id] || indegree[id] != 0 {
				continue
			}
			emitted[id] = true
			result = append(result, g.nodes[id])
			for _, childID := range g.edges[id] {
				indegree[childID]--
			}
			progressed = true
		}
		if !progressed {
			// Unreachable after the cycle check above.
			return nil, fmt.Errorf("graph is not a DAG")
		}
	}
	return result, nil
}

// Levels groups node IDs by execution level: level 0 holds nodes with
// no dependencies, and nodes at level N only depend on earlier levels,
// so each level can run in parallel once the previous one finishes.
func (g *Graph) Levels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %s", strings.Join(cyclePath, " -> "))
	}

	assigned := make(map[string]int, len(g.order))
	var levelOf func(id string) int
	levelOf = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}
		level := 0
		for _, parentID := range g.parents[id] {
			if pl := levelOf(parentID) + 1; pl > level {
				level = pl
			}
		}
		assigned[id] = level
		return level
	}

	maxLevel := -1
	for _, id := range g.order {
		if level := levelOf(id); level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range g.order {
		levels[assigned[id]] = append(levels[assigned[id]], id)
	}
	return levels, nil
}

// Downstream returns every node reachable from id, not including id
// itself. The engine uses this to skip dependents of a failed step.
func (g *Graph) Downstream(id string) []string {
	reached := make(map[string]bool)
	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, childID := range g.edges[nodeID] {
			if !reached[childID] {
				reached[childID] = true
				mark(childID)
			}
		}
	}
	mark(id)
	return g.inOrder(reached)
}

// Upstream returns every node id transitively depends on.
func (g *Graph) Upstream(id string) []string {
	reached := make(map[string]bool)
	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !reached[parentID] {
				reached[parentID] = true
				mark(parentID)
			}
		}
	}
	mark(id)
	return g.inOrder(reached)
}

// Roots returns nodes with no dependencies, in insertion order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// inOrder filters the insertion order down to the given set.
func (g *Graph) inOrder(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for _, id := range g.order {
		if set[id] {
			result = append(result, id)
		}
	}
	return result
}

// SortedIDs returns all node IDs sorted lexically, for displays that
// want alphabetical rather than execution order.
func (g *Graph) SortedIDs() []string {
	ids := make([]string, 0, len(g.order))
	ids = append(ids, g.order...)
	sort.Strings(ids)
	return ids
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
