package graph

import (
	"fmt"
	"reflect"
	"sort"
)

// Node is a service in the dependency graph.
type Node struct {
	// Type is the service type the node is registered under.
	Type reflect.Type

	// Source describes what produces the service: an implementation type,
	// an instance or a function.
	Source string

	// Lifetime is the registration's lifetime name.
	Lifetime string

	// Dependencies are the parameter types of the injection point, in order.
	// Function and instance registrations have none.
	Dependencies []reflect.Type

	// Depth is 0 for nodes without dependencies inside the graph and one
	// more than the deepest dependency otherwise. Nodes on a cycle, or depending
	// on one, get -1.
	Depth int
}

// DependencyGraph is a static view of registrations and the types their
// constructors ask for. It is built once and read afterwards; it is not
// safe for concurrent mutation.
type DependencyGraph struct {
	nodes map[reflect.Type]*Node
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[reflect.Type]*Node)}
}

// AddNode adds t with its direct dependencies. Adding the same type twice
// is an error.
func (g *DependencyGraph) AddNode(t reflect.Type, source, lifetime string, deps []reflect.Type) error {
	if t == nil {
		return fmt.Errorf("node type cannot be nil")
	}

	if _, exists := g.nodes[t]; exists {
		return fmt.Errorf("node %s already added", typeString(t))
	}

	g.nodes[t] = &Node{
		Type:         t,
		Source:       source,
		Lifetime:     lifetime,
		Dependencies: append([]reflect.Type(nil), deps...),
	}
	return nil
}

// Node returns the node for t, or nil.
func (g *DependencyGraph) Node(t reflect.Type) *Node {
	return g.nodes[t]
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}

// Nodes returns all nodes ordered by type name.
func (g *DependencyGraph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return typeString(nodes[i].Type) < typeString(nodes[j].Type)
	})
	return nodes
}

// Dependents returns the types whose nodes depend on t, ordered by name.
func (g *DependencyGraph) Dependents(t reflect.Type) []reflect.Type {
	var result []reflect.Type
	for _, n := range g.Nodes() {
		for _, dep := range n.Dependencies {
			if dep == t {
				result = append(result, n.Type)
				break
			}
		}
	}
	return result
}

// Missing returns the dependency types that have no node, ordered by name.
func (g *DependencyGraph) Missing() []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var result []reflect.Type
	for _, n := range g.Nodes() {
		for _, dep := range n.Dependencies {
			if _, ok := g.nodes[dep]; ok || seen[dep] {
				continue
			}
			seen[dep] = true
			result = append(result, dep)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return typeString(result[i]) < typeString(result[j])
	})
	return result
}

// DetectCycles returns a CircularDependencyError for the first cycle found,
// visiting nodes in name order. The path starts and ends with the same type.
func (g *DependencyGraph) DetectCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[reflect.Type]int, len(g.nodes))
	var stack []reflect.Type

	var visit func(t reflect.Type) error
	visit = func(t reflect.Type) error {
		switch state[t] {
		case visiting:
			start := 0
			for i, s := range stack {
				if s == t {
					start = i
					break
				}
			}
			cycle := append(append([]reflect.Type(nil), stack[start:]...), t)
			return CircularDependencyError{Path: cycle}
		case done:
			return nil
		}

		node := g.nodes[t]
		if node == nil {
			return nil
		}

		state[t] = visiting
		stack = append(stack, t)
		for _, dep := range node.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[t] = done

		return nil
	}

	for _, n := range g.Nodes() {
		if err := visit(n.Type); err != nil {
			return err
		}
	}
	return nil
}

// IsAcyclic reports whether the graph has no cycles.
func (g *DependencyGraph) IsAcyclic() bool {
	return g.DetectCycles() == nil
}

// TopologicalSort returns the nodes with dependencies before their
// dependents. Ties are broken by type name.
func (g *DependencyGraph) TopologicalSort() ([]*Node, error) {
	// Kahn's algorithm over edges that stay inside the graph.
	pending := make(map[reflect.Type]int, len(g.nodes))
	for t, n := range g.nodes {
		for _, dep := range n.Dependencies {
			if _, ok := g.nodes[dep]; ok {
				pending[t]++
			}
		}
	}

	var ready []*Node
	for _, n := range g.Nodes() {
		if pending[n.Type] == 0 {
			ready = append(ready, n)
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		result = append(result, current)

		for _, dependent := range g.Dependents(current.Type) {
			for _, dep := range g.nodes[dependent].Dependencies {
				if dep == current.Type {
					pending[dependent]--
				}
			}
			if pending[dependent] == 0 {
				ready = append(ready, g.nodes[dependent])
			}
		}
	}

	if len(result) != len(g.nodes) {
		if err := g.DetectCycles(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("graph contains %d nodes but only %d could be sorted", len(g.nodes), len(result))
	}

	return result, nil
}

// CalculateDepths sets Depth on every node.
func (g *DependencyGraph) CalculateDepths() {
	for _, n := range g.nodes {
		n.Depth = -1
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		sorted = g.acyclicPrefix()
	}

	for _, n := range sorted {
		depth := 0
		for _, dep := range n.Dependencies {
			if d, ok := g.nodes[dep]; ok && d.Depth+1 > depth {
				depth = d.Depth + 1
			}
		}
		n.Depth = depth
	}
}

// acyclicPrefix returns the nodes that do not depend on a cycle,
// dependencies first.
func (g *DependencyGraph) acyclicPrefix() []*Node {
	var result []*Node
	placed := make(map[reflect.Type]bool)

	for changed := true; changed; {
		changed = false
		for _, n := range g.Nodes() {
			if placed[n.Type] {
				continue
			}

			ok := true
			for _, dep := range n.Dependencies {
				if _, inGraph := g.nodes[dep]; inGraph && !placed[dep] {
					ok = false
					break
				}
			}
			if ok {
				placed[n.Type] = true
				result = append(result, n)
				changed = true
			}
		}
	}

	return result
}
