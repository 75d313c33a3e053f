// Package digsource bridges depends containers and go.uber.org/dig.
//
// Bind makes values built by a dig container resolvable from a depends
// container; Export makes depends registrations available to dig
// constructors.
//
//	dc := dig.New()
//	dc.Provide(NewSQLConnection) // func() *sql.DB
//
//	src := digsource.New(dc)
//	digsource.Bind[Pinger, *sql.DB](src, root, depends.Transient)
package digsource

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/dig"

	"github.com/garagelab/depends"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ErrNotExtracted is returned when dig invoked the extractor without a value.
var ErrNotExtracted = errors.New("dig did not supply a value")

// Source builds values with a dig container.
//
// A Source adds no locking of its own: dig containers are not safe for
// concurrent use, so callers that resolve Bind registrations from several
// goroutines must serialize those resolutions. Extract may be re-entered
// from inside a dig constructor, as happens when an Export chain leads back
// to a Bind registration on the same Source.
type Source struct {
	dc *dig.Container
}

// New wraps dc.
func New(dc *dig.Container) *Source {
	return &Source{dc: dc}
}

// Register binds iface in c to the value dig provides for the type
// provided. A Singleton registration makes c own the value, so a Disposable
// value is closed when c is disposed; use Transient when dig owns it.
func (s *Source) Register(c *depends.Container, iface, provided reflect.Type, lifetime depends.Lifetime) error {
	if provided == nil {
		return depends.ArgumentError{Argument: "provided", Cause: depends.ErrTypeNil}
	}

	return c.RegisterFunc(iface, func(depends.Resolver) (any, error) {
		return s.Extract(provided)
	}, lifetime)
}

// Extract asks dig for a value of type t.
func (s *Source) Extract(t reflect.Type) (any, error) {
	if t == nil {
		return nil, depends.ArgumentError{Argument: "type", Cause: depends.ErrTypeNil}
	}

	var result any

	fnType := reflect.FuncOf([]reflect.Type{t}, []reflect.Type{errType}, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		if len(args) > 0 && args[0].IsValid() {
			result = args[0].Interface()
			return []reflect.Value{reflect.Zero(errType)}
		}

		err := ErrNotExtracted
		return []reflect.Value{reflect.ValueOf(&err).Elem()}
	})

	if err := s.dc.Invoke(fn.Interface()); err != nil {
		return nil, fmt.Errorf("extract %s from dig: %w", t, err)
	}
	return result, nil
}

// Bind binds interface I in c to the value dig provides for P.
func Bind[I, P any](s *Source, c *depends.Container, lifetime depends.Lifetime) error {
	return s.Register(c, depends.TypeOf[I](), depends.TypeOf[P](), lifetime)
}

// Export provides t to dc through a constructor that resolves t from r each
// time dig calls it. dig caches the first value it gets.
func Export(dc *dig.Container, r depends.Resolver, t reflect.Type) error {
	if t == nil {
		return depends.ArgumentError{Argument: "type", Cause: depends.ErrTypeNil}
	}

	fnType := reflect.FuncOf(nil, []reflect.Type{t, errType}, false)
	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		instance, err := r.Resolve(t)
		if err != nil {
			return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
		}

		out := reflect.New(t).Elem()
		out.Set(reflect.ValueOf(instance))
		return []reflect.Value{out, reflect.Zero(errType)}
	})

	return dc.Provide(fn.Interface())
}

// ExportOf is Export for a compile-time type.
func ExportOf[T any](dc *dig.Container, r depends.Resolver) error {
	return Export(dc, r, depends.TypeOf[T]())
}
