package depends

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/garagelab/depends/internal/graph"
)

// GraphFormat selects the output of WriteGraph.
type GraphFormat int

const (
	// GraphDOT writes Graphviz DOT.
	GraphDOT GraphFormat = iota

	// GraphText writes a listing grouped by dependency depth.
	GraphText
)

// Validate checks the registrations visible from c without constructing
// anything. It reports constructors that cannot be selected, interface
// parameters with no registration and circular dependencies, joined into
// one error. Function and instance registrations are opaque: what a
// function resolves at run time is not checked.
//
// A nil result means that every class registration visible from c can be
// wired, not that every constructor will succeed.
func (c *Container) Validate() error {
	_, problems, err := c.dependencyGraph("validate")
	if err != nil {
		return err
	}
	return errors.Join(problems...)
}

// WriteGraph writes the dependency graph of the registrations visible from
// c. Concrete types that are built without a registration appear as
// transient nodes; unregistered interfaces are marked as such.
func (c *Container) WriteGraph(w io.Writer, format GraphFormat) error {
	g, _, err := c.dependencyGraph("write graph")
	if err != nil {
		return err
	}

	v := graph.NewVisualizer(g, formatType)
	switch format {
	case GraphDOT:
		return v.WriteDOT(w)
	case GraphText:
		return v.WriteText(w)
	default:
		return ArgumentError{Argument: "format", Cause: fmt.Errorf("unknown graph format %d", int(format))}
	}
}

// dependencyGraph builds the graph seen by a resolution started at c: for
// every service type the nearest registration wins. Problems found while
// building it are returned alongside the graph.
func (c *Container) dependencyGraph(operation string) (*graph.DependencyGraph, []error, error) {
	visible := make(map[reflect.Type]*factory)
	for n := c; n != nil; n = n.parent {
		n.mu.Lock()
		if n.disposed {
			n.mu.Unlock()
			return nil, nil, StateError{ContainerID: n.id, Operation: operation}
		}
		for t, f := range n.factories {
			if _, shadowed := visible[t]; !shadowed {
				visible[t] = f
			}
		}
		n.mu.Unlock()
	}

	queue := make([]reflect.Type, 0, len(visible))
	for t := range visible {
		queue = append(queue, t)
	}
	sort.Slice(queue, func(i, j int) bool {
		return queue[i].String() < queue[j].String()
	})

	g := graph.New()
	seen := make(map[reflect.Type]bool)
	var problems []error

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		if seen[t] {
			continue
		}
		seen[t] = true

		f, ok := visible[t]
		if !ok {
			f = newClassFactory(t, t, Transient)
		}

		deps, err := c.factoryDependencies(f)
		if err != nil {
			problems = append(problems, err)
		}

		if err := g.AddNode(t, f.source(), f.lifetime.String(), deps); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}

		for i, dep := range deps {
			if _, registered := visible[dep]; !registered && dep.Kind() == reflect.Interface {
				problems = append(problems, DependencyError{
					ServiceType: f.impl,
					Dependency:  dep,
					Index:       i,
					Cause:       ResolutionError{ServiceType: dep, Cause: ErrUnresolvedDependency},
				})
				continue
			}
			queue = append(queue, dep)
		}
	}

	if err := g.DetectCycles(); err != nil {
		problems = append(problems, err)
	}

	return g, problems, nil
}

// factoryDependencies returns the parameter types the factory's injection
// point asks for. Instance and function factories report none.
func (c *Container) factoryDependencies(f *factory) ([]reflect.Type, error) {
	if f.kind != classFactory {
		return nil, nil
	}

	ctor, err := selectInjectionPoint(c.opts.catalog, c.opts.analyzer, f.impl)
	if err != nil {
		return nil, err
	}
	return ctor.Params, nil
}

// source describes what produces the factory's instances.
func (f *factory) source() string {
	switch f.kind {
	case classFactory:
		return formatType(f.impl)
	case instanceFactory:
		return "instance of " + formatType(f.impl)
	default:
		return f.kind.String()
	}
}
