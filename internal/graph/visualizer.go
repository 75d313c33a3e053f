package graph

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Visualizer renders a dependency graph.
type Visualizer struct {
	graph *DependencyGraph
	name  func(reflect.Type) string
}

// NewVisualizer creates a visualizer that labels types with name. A nil
// name uses reflect.Type.String.
func NewVisualizer(graph *DependencyGraph, name func(reflect.Type) string) *Visualizer {
	if name == nil {
		name = typeString
	}
	return &Visualizer{graph: graph, name: name}
}

// WriteDOT writes the graph in Graphviz DOT format. Dependencies without a
// registration are drawn in gray.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	var b strings.Builder

	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[reflect.Type]string)
	nodes := v.graph.Nodes()
	for i, node := range nodes {
		id := fmt.Sprintf("n%d", i)
		ids[node.Type] = id
		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q, style=filled];\n",
			id, v.formatNodeLabel(node), nodeColor(node.Lifetime))
	}

	for i, t := range v.graph.Missing() {
		id := fmt.Sprintf("m%d", i)
		ids[t] = id
		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q, style=filled];\n",
			id, v.name(t)+"\n(unregistered)", nodeColor(""))
	}

	for _, node := range nodes {
		for _, dep := range node.Dependencies {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[node.Type], ids[dep])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes the nodes grouped by depth, followed by statistics.
func (v *Visualizer) WriteText(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	v.graph.CalculateDepths()

	levels := make(map[int][]*Node)
	maxDepth := -1
	for _, node := range v.graph.Nodes() {
		levels[node.Depth] = append(levels[node.Depth], node)
		if node.Depth > maxDepth {
			maxDepth = node.Depth
		}
	}

	for depth := 0; depth <= maxDepth; depth++ {
		nodes, ok := levels[depth]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "Level %d:\n", depth)
		b.WriteString("--------\n")
		for _, node := range nodes {
			v.writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	if cyclic := levels[-1]; len(cyclic) > 0 {
		b.WriteString("Nodes in Cycles:\n")
		b.WriteString("----------------\n")
		for _, node := range cyclic {
			v.writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	v.writeStatistics(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

func (v *Visualizer) formatNodeLabel(node *Node) string {
	return fmt.Sprintf("%s\n%s\n%s", v.name(node.Type), node.Source, node.Lifetime)
}

func nodeColor(lifetime string) string {
	switch lifetime {
	case "Singleton":
		return "lightblue"
	case "Transient":
		return "lightyellow"
	default:
		return "lightgray"
	}
}

func (v *Visualizer) writeNodeDetails(b *strings.Builder, node *Node, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, v.name(node.Type))
	fmt.Fprintf(b, "%s  Source: %s\n", indent, node.Source)
	fmt.Fprintf(b, "%s  Lifetime: %s\n", indent, node.Lifetime)

	if len(node.Dependencies) > 0 {
		fmt.Fprintf(b, "%s  Dependencies: [%s]\n", indent, v.joinNames(node.Dependencies))
	}

	if dependents := v.graph.Dependents(node.Type); len(dependents) > 0 {
		fmt.Fprintf(b, "%s  Dependents: [%s]\n", indent, v.joinNames(dependents))
	}
}

func (v *Visualizer) joinNames(types []reflect.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = v.name(t)
	}
	return strings.Join(names, ", ")
}

func (v *Visualizer) writeStatistics(b *strings.Builder) {
	b.WriteString("Statistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(b, "  Total nodes: %d\n", v.graph.Size())

	edges := 0
	for _, node := range v.graph.Nodes() {
		edges += len(node.Dependencies)
	}
	fmt.Fprintf(b, "  Total edges: %d\n", edges)

	if missing := v.graph.Missing(); len(missing) > 0 {
		fmt.Fprintf(b, "  Unregistered: [%s]\n", v.joinNames(missing))
	}

	if v.graph.IsAcyclic() {
		b.WriteString("  Cycles: None (graph is acyclic)\n")
	} else {
		b.WriteString("  Cycles: DETECTED (graph contains circular dependencies)\n")
	}
}
