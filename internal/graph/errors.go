package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError represents a cycle between definitions.
type CircularDependencyError struct {
	Path []NodeKey
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for _, node := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", node))
		b.WriteString("      ↓\n")
	}
	if len(e.Path) > 0 {
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Path[0]))
	}

	return b.String()
}
