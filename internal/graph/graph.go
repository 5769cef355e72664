// Package graph models bean definitions and their dependency edges for
// analysis and rendering.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// NodeKey uniquely identifies a definition in the graph.
type NodeKey struct {
	Name    string
	Package string
	Context string
}

func (k NodeKey) String() string {
	return fmt.Sprintf("%s.%s@%s", k.Package, k.Name, k.Context)
}

// Node represents a definition in the dependency graph.
type Node struct {
	Key     NodeKey
	Scope   string
	Factory string // factory method name, empty for plain allocation

	Dependencies []Edge    // edges in declaration order
	Dependents   []NodeKey // nodes with an edge to this node
}

// Edge is a dependency of a node. Target is nil when the edge could not be
// autodetected.
type Edge struct {
	Field  string
	Bean   string
	Target *NodeKey
}

// DependencyGraph manages the dependency relationships between definitions.
// It provides cycle detection and topological sorting.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*Node
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[NodeKey]*Node)}
}

// AddNode adds a node, or updates the attributes of an existing one.
func (g *DependencyGraph) AddNode(key NodeKey, scope, factory string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.ensure(key)
	node.Scope = scope
	node.Factory = factory
	return node
}

// AddEdge records that from depends on to through field. A nil to records
// an unresolved edge.
func (g *DependencyGraph) AddEdge(from NodeKey, field, bean string, to *NodeKey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.ensure(from)
	node.Dependencies = append(node.Dependencies, Edge{Field: field, Bean: bean, Target: to})

	if to != nil {
		target := g.ensure(*to)
		target.Dependents = append(target.Dependents, from)
	}
}

// ensure must be called with the lock held.
func (g *DependencyGraph) ensure(key NodeKey) *Node {
	node, ok := g.nodes[key]
	if !ok {
		node = &Node{Key: key}
		g.nodes[key] = node
	}
	return node
}

// Node returns the node for key, nil if absent.
func (g *DependencyGraph) Node(key NodeKey) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.nodes[key]
}

// Nodes returns every node sorted by key.
func (g *DependencyGraph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.sorted()
}

func (g *DependencyGraph) sorted() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Key.String() < nodes[j].Key.String()
	})
	return nodes
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// TopologicalSort returns the nodes with every dependency before its
// dependents, or a CircularDependencyError.
func (g *DependencyGraph) TopologicalSort() ([]*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm over the reversed edges: a node is ready once all
	// of its dependencies are emitted.
	remaining := make(map[NodeKey]int, len(g.nodes))
	for key, node := range g.nodes {
		remaining[key] = resolvedCount(node)
	}

	var queue []NodeKey
	for _, node := range g.sorted() {
		if remaining[node.Key] == 0 {
			queue = append(queue, node.Key)
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.nodes[current]
		result = append(result, node)

		for _, dependent := range node.Dependents {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		cycles := g.cycles()
		err := CircularDependencyError{}
		if len(cycles) > 0 {
			err.Path = cycles[0]
		}
		return nil, err
	}

	return result, nil
}

func resolvedCount(node *Node) int {
	n := 0
	for _, edge := range node.Dependencies {
		if edge.Target != nil {
			n++
		}
	}
	return n
}

// Cycles returns every elementary dependency cycle found by a depth-first
// walk, each starting at its smallest key. Self edges are cycles of length one.
func (g *DependencyGraph) Cycles() [][]NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.cycles()
}

func (g *DependencyGraph) cycles() [][]NodeKey {
	var (
		result   [][]NodeKey
		seen     = make(map[string]bool)
		visiting = make(map[NodeKey]int) // position on the stack + 1
		done     = make(map[NodeKey]bool)
		stack    []NodeKey
	)

	var visit func(key NodeKey)
	visit = func(key NodeKey) {
		visiting[key] = len(stack) + 1
		stack = append(stack, key)

		for _, edge := range g.nodes[key].Dependencies {
			if edge.Target == nil {
				continue
			}

			target := *edge.Target
			if pos := visiting[target]; pos > 0 {
				cycle := canonical(append([]NodeKey(nil), stack[pos-1:]...))
				id := fmt.Sprint(cycle)
				if !seen[id] {
					seen[id] = true
					result = append(result, cycle)
				}
				continue
			}

			if !done[target] {
				visit(target)
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, key)
		done[key] = true
	}

	for _, node := range g.sorted() {
		if !done[node.Key] {
			visit(node.Key)
		}
	}

	return result
}

// canonical rotates a cycle so that it starts at its smallest key.
func canonical(cycle []NodeKey) []NodeKey {
	first := 0
	for i, key := range cycle {
		if key.String() < cycle[first].String() {
			first = i
		}
	}
	return append(cycle[first:], cycle[:first]...)
}

// IsAcyclic reports whether the graph has no cycle.
func (g *DependencyGraph) IsAcyclic() bool {
	return len(g.Cycles()) == 0
}

// Roots returns the nodes nothing depends on.
func (g *DependencyGraph) Roots() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []*Node
	for _, node := range g.sorted() {
		if len(node.Dependents) == 0 {
			roots = append(roots, node)
		}
	}
	return roots
}
