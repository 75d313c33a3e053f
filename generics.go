package depends

import "reflect"

// TypeOf returns the reflect.Type of T, including interface types.
//
//	depends.TypeOf[io.Writer]() // the interface, not a dynamic type
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register binds interface I to implementation C.
func Register[I, C any](c *Container, lifetime Lifetime) error {
	return c.Register(TypeOf[I](), TypeOf[C](), lifetime)
}

// RegisterInstance binds interface I to instance.
func RegisterInstance[I any](c *Container, instance I) error {
	return c.RegisterInstance(TypeOf[I](), instance)
}

// RegisterFunc binds interface I to a typed factory function.
func RegisterFunc[I any](c *Container, fn func(Resolver) (I, error), lifetime Lifetime) error {
	if fn == nil {
		return c.RegisterFunc(TypeOf[I](), nil, lifetime)
	}

	return c.RegisterFunc(TypeOf[I](), func(r Resolver) (any, error) {
		instance, err := fn(r)
		if err != nil {
			return nil, err
		}
		return instance, nil
	}, lifetime)
}

// Resolve resolves T from r, which is usually a *Container or the Resolver
// handed to a factory function.
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	instance, err := r.Resolve(TypeOf[T]())
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: TypeOf[T](),
			Actual:   reflect.TypeOf(instance),
			Context:  "resolve",
		}
	}

	return typed, nil
}

// MustResolve is like Resolve but panics on error. It is meant for program
// setup where a missing service is a bug.
func MustResolve[T any](r Resolver) T {
	instance, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return instance
}

// DefaultOf marks the type being defined as the default implementation of I.
func DefaultOf[I any](lifetime Lifetime) Marker {
	return DefaultFor(TypeOf[I](), lifetime)
}
