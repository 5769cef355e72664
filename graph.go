package beans

import (
	"fmt"
	"io"

	"github.com/junioryono/beans/internal/graph"
)

// GraphFormat selects the rendering of BeanFactory.WriteGraph.
type GraphFormat string

const (
	// GraphDOT renders Graphviz DOT.
	GraphDOT GraphFormat = "dot"

	// GraphTree renders a box-drawn tree below every root bean.
	GraphTree GraphFormat = "tree"
)

// Graph is a dependency-graph snapshot of a registry.
type Graph struct {
	g *graph.DependencyGraph
}

// Cycles returns the dependency cycles between beans, each as a list of
// bean identities. Cycles between distinct beans resolve; a bean depending on
// itself does not.
func (g *Graph) Cycles() [][]DefinitionID {
	var cycles [][]DefinitionID
	for _, cycle := range g.g.Cycles() {
		ids := make([]DefinitionID, 0, len(cycle))
		for _, key := range cycle {
			ids = append(ids, DefinitionID(key))
		}
		cycles = append(cycles, ids)
	}
	return cycles
}

// Acyclic reports whether no bean depends on itself, directly or through
// other beans.
func (g *Graph) Acyclic() bool {
	return g.g.IsAcyclic()
}

// Order returns the beans with every dependency before its dependents.
// Unresolved edges are ignored. There is no such order when the graph has a
// cycle.
func (g *Graph) Order() ([]DefinitionID, error) {
	nodes, err := g.g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	ids := make([]DefinitionID, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, DefinitionID(node.Key))
	}
	return ids, nil
}

// Size returns the number of beans in the graph.
func (g *Graph) Size() int {
	return g.g.Size()
}

// Write renders the graph in format.
func (g *Graph) Write(w io.Writer, format GraphFormat) error {
	v := graph.NewVisualizer(g.g)

	switch format {
	case GraphDOT:
		return v.WriteDOT(w)
	case GraphTree:
		return v.WriteTree(w)
	default:
		return fmt.Errorf("unknown graph format %q", format)
	}
}

// WriteBean renders the tree below one bean.
func (g *Graph) WriteBean(w io.Writer, id DefinitionID) error {
	return graph.NewVisualizer(g.g).WriteTree(w, graph.NodeKey(id))
}

// Graph autodetects every dependency edge of the registry's definitions and
// returns the resulting graph. Edges that cannot be autodetected are kept
// as unresolved. The registry must be able to list its definitions.
func (f *BeanFactory) Graph() (*Graph, error) {
	lister, ok := f.registry.(interface{ ToSlice() []*Definition })
	if !ok {
		return nil, fmt.Errorf("registry %T cannot list its definitions", f.registry)
	}

	// Autodetection memoizes onto the definitions.
	f.mu.Lock()
	defer f.mu.Unlock()

	return buildGraph(f.registry, f.resolver.loader, lister.ToSlice()), nil
}

// WriteGraph renders the dependency graph of the factory's registry.
func (f *BeanFactory) WriteGraph(w io.Writer, format GraphFormat) error {
	g, err := f.Graph()
	if err != nil {
		return err
	}
	return g.Write(w, format)
}

func buildGraph(reg Registry, loader Loader, defs []*Definition) *Graph {
	g := graph.NewDependencyGraph()

	for _, def := range defs {
		g.AddNode(graph.NodeKey(def.ID()), def.Scope.String(), def.FactoryMethod)
	}

	for _, def := range defs {
		from := graph.NodeKey(def.ID())
		for _, ref := range def.Dependencies {
			if ref.resolved == nil && loader.Ensure(ref.Bean) != nil {
				g.AddEdge(from, ref.Field, ref.Bean, nil)
				continue
			}

			target, err := autodetectRef(reg, def, ref)
			if err != nil {
				g.AddEdge(from, ref.Field, ref.Bean, nil)
				continue
			}

			to := graph.NodeKey(target.ID())
			g.AddEdge(from, ref.Field, ref.Bean, &to)
		}
	}

	return &Graph{g: g}
}
