package depends

import (
	"reflect"

	"github.com/garagelab/depends/internal/graph"
)

// Resolver resolves a type to an instance.
//
// *Container implements Resolver. Function factories receive a Resolver
// bound to the requesting container that also tracks the types currently
// under construction, so that dependency cycles are reported instead of
// recursing forever.
type Resolver interface {
	Resolve(t reflect.Type) (any, error)
}

var (
	_ Resolver = (*Container)(nil)
	_ Resolver = (*resolution)(nil)
)

// resolution is one resolution in progress: the container it started from
// and the chain of types being constructed.
type resolution struct {
	container *Container
	chain     *graph.Chain
}

func (r *resolution) Resolve(t reflect.Type) (any, error) {
	return r.resolve(t)
}

func (r *resolution) resolve(t reflect.Type) (any, error) {
	if t == nil {
		return nil, ArgumentError{Argument: "type", Cause: ErrTypeNil}
	}

	if err := r.chain.Check(t); err != nil {
		return nil, err
	}

	f, err := r.container.lookup(t)
	if err != nil {
		return nil, err
	}

	return f.createInstance(&resolution{
		container: r.container,
		chain:     r.chain.Push(t),
	})
}
