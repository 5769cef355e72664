package graph

import (
	"fmt"
	"io"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. Output is ordered by
// node key so it is stable across runs.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	nodes := v.graph.Nodes()

	var b strings.Builder
	b.WriteString("digraph beans {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[NodeKey]string, len(nodes))
	for i, node := range nodes {
		ids[node.Key] = fmt.Sprintf("n%d", i)
	}

	for _, node := range nodes {
		fmt.Fprintf(&b, "  %s [label=\"%s\", fillcolor=\"%s\", style=filled];\n",
			ids[node.Key], formatNodeLabel(node, `\n`), nodeColor(node))
	}

	missing := 0
	for _, node := range nodes {
		for _, edge := range node.Dependencies {
			if edge.Target == nil {
				id := fmt.Sprintf("missing%d", missing)
				missing++
				fmt.Fprintf(&b, "  %s [label=\"%s?\", shape=ellipse, style=dashed];\n", id, edge.Bean)
				fmt.Fprintf(&b, "  %s -> %s [label=\"%s\", style=dashed];\n", ids[node.Key], id, edge.Field)
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s [label=\"%s\"];\n", ids[node.Key], ids[*edge.Target], edge.Field)
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTree draws the dependency tree below each root. Without roots every
// node nothing depends on is drawn. A dependency already on the path is
// drawn once more and marked as a cycle.
func (v *Visualizer) WriteTree(w io.Writer, roots ...NodeKey) error {
	if len(roots) == 0 {
		for _, node := range v.graph.Roots() {
			roots = append(roots, node.Key)
		}
	}
	if len(roots) == 0 {
		// Every node sits on a cycle.
		if nodes := v.graph.Nodes(); len(nodes) > 0 {
			roots = append(roots, nodes[0].Key)
		}
	}

	for i, root := range roots {
		node := v.graph.Node(root)
		if node == nil {
			return fmt.Errorf("node %s not found", root)
		}

		t := tree.NewTree(tree.NodeString(formatNodeLabel(node, " ")))
		v.addChildren(t, node, map[NodeKey]bool{root: true})

		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, t.String()+"\n"); err != nil {
			return err
		}
	}

	return nil
}

func (v *Visualizer) addChildren(t *tree.Tree, node *Node, path map[NodeKey]bool) {
	for _, edge := range node.Dependencies {
		if edge.Target == nil {
			t.AddChild(tree.NodeString(fmt.Sprintf("%s: %s (unresolved)", edge.Field, edge.Bean)))
			continue
		}

		target := v.graph.Node(*edge.Target)
		label := edge.Field + ": " + formatNodeLabel(target, " ")
		if path[target.Key] {
			t.AddChild(tree.NodeString(label + " (cycle)"))
			continue
		}

		child := t.AddChild(tree.NodeString(label))
		path[target.Key] = true
		v.addChildren(child, target, path)
		delete(path, target.Key)
	}
}

func formatNodeLabel(node *Node, sep string) string {
	label := node.Key.String()
	if node.Scope != "" {
		label += sep + "[" + node.Scope + "]"
	}
	if node.Factory != "" {
		label += sep + "factory " + node.Factory
	}
	return label
}

func nodeColor(node *Node) string {
	switch node.Scope {
	case "singleton":
		return "lightblue"
	case "thread":
		return "lightgreen"
	case "prototype":
		return "lightyellow"
	default:
		return "lightgray"
	}
}
