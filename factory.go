package depends

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/garagelab/depends/internal/reflection"
)

// FactoryFunc creates an instance for a function registration. The
// Resolver is bound to the container the instance was requested from.
type FactoryFunc func(r Resolver) (any, error)

type factoryKind int

const (
	classFactory factoryKind = iota
	instanceFactory
	funcFactory
)

func (k factoryKind) String() string {
	switch k {
	case classFactory:
		return "class"
	case instanceFactory:
		return "instance"
	case funcFactory:
		return "function"
	default:
		return fmt.Sprintf("factoryKind(%d)", int(k))
	}
}

// factory produces instances of one registration and, for singletons,
// owns the instance it produced.
type factory struct {
	kind     factoryKind
	lifetime Lifetime
	service  reflect.Type
	impl     reflect.Type
	fn       FactoryFunc
	owner    string

	mu       sync.Mutex
	instance any
	cached   bool
	disposed bool
}

func newClassFactory(service, impl reflect.Type, lifetime Lifetime) *factory {
	return &factory{
		kind:     classFactory,
		lifetime: lifetime,
		service:  service,
		impl:     impl,
	}
}

func newInstanceFactory(service reflect.Type, instance any) *factory {
	return &factory{
		kind:     instanceFactory,
		lifetime: Singleton,
		service:  service,
		impl:     reflect.TypeOf(instance),
		instance: instance,
		cached:   true,
	}
}

func newFuncFactory(service reflect.Type, fn FactoryFunc, lifetime Lifetime) *factory {
	return &factory{
		kind:     funcFactory,
		lifetime: lifetime,
		service:  service,
		fn:       fn,
	}
}

// createInstance returns the cached singleton or runs the creation step.
// The factory lock is not held while the step runs, so concurrent first
// resolutions may both construct; the first stored instance wins and the
// other one is closed if it is Disposable.
func (f *factory) createInstance(r *resolution) (any, error) {
	if f.lifetime == Singleton {
		f.mu.Lock()
		if f.disposed {
			f.mu.Unlock()
			return nil, StateError{ContainerID: f.owner, Operation: "create instance"}
		}
		if f.cached {
			instance := f.instance
			f.mu.Unlock()
			return instance, nil
		}
		f.mu.Unlock()
	}

	instance, err := f.create(r)
	if err != nil {
		return nil, err
	}

	if f.lifetime != Singleton {
		return instance, nil
	}

	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		f.discard(r, instance)
		return nil, StateError{ContainerID: f.owner, Operation: "create instance"}
	}
	if f.cached {
		winner := f.instance
		f.mu.Unlock()
		f.discard(r, instance)
		return winner, nil
	}
	f.instance = instance
	f.cached = true
	f.mu.Unlock()

	return instance, nil
}

func (f *factory) create(r *resolution) (any, error) {
	switch f.kind {
	case classFactory:
		return f.construct(r)
	case funcFactory:
		return f.invoke(r)
	case instanceFactory:
		return nil, fmt.Errorf("%w: instance factory for %s has no instance", ErrInternal, formatType(f.service))
	default:
		return nil, fmt.Errorf("%w: unknown factory kind %s", ErrInternal, f.kind)
	}
}

// construct selects the injection point of the implementation type,
// resolves its parameters and calls it.
func (f *factory) construct(r *resolution) (any, error) {
	opts := r.container.opts

	ctor, err := selectInjectionPoint(opts.catalog, opts.analyzer, f.impl)
	if err != nil {
		return nil, err
	}

	args := make([]reflect.Value, len(ctor.Params))
	for i, param := range ctor.Params {
		dep, err := r.resolve(param)
		if err != nil {
			return nil, DependencyError{
				ServiceType: f.impl,
				Dependency:  param,
				Index:       i,
				Cause:       err,
			}
		}
		args[i] = reflect.ValueOf(dep)
	}

	result, err := ctor.Call(args)
	if err != nil {
		var panicErr *reflection.PanicError
		if errors.As(err, &panicErr) {
			return nil, ConstructionError{ServiceType: f.impl, Panic: panicErr.Value, Stack: panicErr.Stack}
		}
		return nil, ConstructionError{ServiceType: f.impl, Cause: err}
	}

	instance := result.Interface()
	if reflection.IsNil(instance) {
		return nil, ConstructionError{ServiceType: f.impl, Cause: ErrInstanceNil}
	}

	return instance, nil
}

// invoke runs the registered function and checks what it produced.
func (f *factory) invoke(r *resolution) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			instance = nil
			err = ConstructionError{ServiceType: f.service, Panic: p, Stack: debug.Stack()}
		}
	}()

	instance, err = f.fn(r)
	if err != nil {
		return nil, ConstructionError{ServiceType: f.service, Cause: err}
	}

	if reflection.IsNil(instance) {
		return nil, ConstructionError{ServiceType: f.service, Cause: ErrInstanceNil}
	}

	if actual := reflect.TypeOf(instance); !actual.AssignableTo(f.service) {
		return nil, TypeMismatchError{
			Expected: f.service,
			Actual:   actual,
			Context:  "factory result",
		}
	}

	return instance, nil
}

// discard closes an instance that lost the race to be cached.
func (f *factory) discard(r *resolution, instance any) {
	d, ok := instance.(Disposable)
	if !ok {
		return
	}

	if err := d.Close(); err != nil {
		r.container.opts.logger.Warn("failed to close discarded singleton",
			zap.Stringer("service", f.service),
			zap.Error(err),
		)
	}
}

// dispose closes the held singleton if it is Disposable. Transient
// instances are never tracked.
func (f *factory) dispose() error {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return StateError{ContainerID: f.owner, Operation: "dispose factory"}
	}
	f.disposed = true
	instance, cached := f.instance, f.cached
	f.instance = nil
	f.mu.Unlock()

	if !cached {
		return nil
	}

	if d, ok := instance.(Disposable); ok {
		if err := d.Close(); err != nil {
			return fmt.Errorf("close %s: %w", formatType(f.service), err)
		}
	}

	return nil
}
