package depends

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garagelab/depends/internal/reflection"
)

// Container is a node of the resolver tree. It maps interface types to
// factories, owns its child containers and falls back to its parent for
// interfaces it has no registration for.
//
// The root container is created by New; children are created with
// CreateChild. Registrations made on a child shadow the parent's without
// changing them.
//
// A Container is safe for concurrent use. Its lock is never held while a
// factory runs or while another container is consulted.
type Container struct {
	id     string
	parent *Container // lookup only; ownership lives in parent.children
	opts   *options

	mu        sync.Mutex
	factories map[reflect.Type]*factory
	retired   []*factory
	children  map[*Container]struct{}
	disposed  bool
}

// New creates a root container. The catalog's default implementations are
// discovered and registered on the root before New returns, so explicit
// registrations made afterwards take precedence.
func New(opts ...Option) (*Container, error) {
	o := newOptions(opts)
	root := newContainer(nil, o)

	defaults, err := o.catalog.DefaultImplementations()
	if err != nil {
		return nil, fmt.Errorf("discover default implementations: %w", err)
	}

	for _, d := range defaults {
		if err := root.Register(d.Interface, d.Implementation, d.Lifetime); err != nil {
			return nil, fmt.Errorf("register default implementation %s: %w", formatType(d.Interface), err)
		}
	}

	o.logger.Debug("created root container",
		zap.String("container_id", root.id),
		zap.Int("defaults", len(defaults)),
	)

	return root, nil
}

func newContainer(parent *Container, o *options) *Container {
	return &Container{
		id:        uuid.NewString(),
		parent:    parent,
		opts:      o,
		factories: make(map[reflect.Type]*factory),
		children:  make(map[*Container]struct{}),
	}
}

// ID returns the unique identifier of the container.
func (c *Container) ID() string {
	return c.id
}

// Parent returns the parent container, or nil for the root.
func (c *Container) Parent() *Container {
	return c.parent
}

// IsDisposed reports whether Dispose has been called on the container or
// one of its ancestors.
func (c *Container) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Register binds iface to the concrete type class. Instances are built
// through the injection point of class, with its parameters resolved from
// the container the instance is requested from.
//
// A Singleton registered here and first resolved through a child keeps the
// dependencies that child supplied, including the child's own singletons.
// Those are closed when the child is disposed while the singleton still
// holds them. Register a singleton's dependencies in the same container,
// or above it, when the singleton outlives its children.
func (c *Container) Register(iface, class reflect.Type, lifetime Lifetime) error {
	if err := c.checkActive("register"); err != nil {
		return err
	}

	if err := validateRegistration(iface, class); err != nil {
		return err
	}

	if !lifetime.IsValid() {
		return LifetimeError{Value: int(lifetime)}
	}

	return c.store(iface, newClassFactory(iface, class, lifetime))
}

// RegisterInstance binds iface to an existing instance. The container takes
// ownership: a Disposable instance is closed when the container is disposed.
func (c *Container) RegisterInstance(iface reflect.Type, instance any) error {
	if err := c.checkActive("register instance"); err != nil {
		return err
	}

	if err := validateInterface(iface); err != nil {
		return err
	}

	if reflection.IsNil(instance) {
		return ArgumentError{Argument: "instance", Cause: ErrInstanceNil}
	}

	if actual := reflect.TypeOf(instance); !actual.AssignableTo(iface) {
		return TypeMismatchError{Expected: iface, Actual: actual, Context: "instance"}
	}

	return c.store(iface, newInstanceFactory(iface, instance))
}

// RegisterFunc binds iface to a factory function. The type of the value the
// function returns is checked each time it runs.
func (c *Container) RegisterFunc(iface reflect.Type, fn FactoryFunc, lifetime Lifetime) error {
	if err := c.checkActive("register function"); err != nil {
		return err
	}

	if err := validateInterface(iface); err != nil {
		return err
	}

	if fn == nil {
		return ArgumentError{Argument: "factory", Cause: ErrFactoryNil}
	}

	if !lifetime.IsValid() {
		return LifetimeError{Value: int(lifetime)}
	}

	return c.store(iface, newFuncFactory(iface, fn, lifetime))
}

// Resolve returns an instance of t.
//
// The factory for t is looked up in this container and then in each
// ancestor. A concrete type with no registration is built on the fly as a
// transient; an interface with no registration fails with
// ErrUnresolvedDependency.
func (c *Container) Resolve(t reflect.Type) (any, error) {
	if err := c.checkActive("resolve"); err != nil {
		return nil, err
	}

	r := &resolution{container: c}
	return r.resolve(t)
}

// IsRegistered reports whether a factory for t is reachable from this
// container. It is false once this container or an ancestor is disposed.
func (c *Container) IsRegistered(t reflect.Type) bool {
	for n := c; n != nil; n = n.parent {
		n.mu.Lock()
		if n.disposed {
			n.mu.Unlock()
			return false
		}
		_, ok := n.factories[t]
		n.mu.Unlock()

		if ok {
			return true
		}
	}
	return false
}

// CreateChild creates a container that falls back to this one for
// registrations it does not have itself. The child is disposed together
// with this container.
func (c *Container) CreateChild() (*Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, StateError{ContainerID: c.id, Operation: "create child"}
	}

	child := newContainer(c, c.opts)
	c.children[child] = struct{}{}

	c.opts.logger.Debug("created child container",
		zap.String("container_id", child.id),
		zap.String("parent_id", c.id),
	)

	return child, nil
}

// Dispose disposes the container's children and closes the Disposable
// singletons its factories own. Close errors are collected in a
// DisposalError; they never stop the disposal. Disposing a container twice
// fails with ErrInvalidState. The parent stays usable.
func (c *Container) Dispose() error {
	errs, ok := c.dispose()
	if !ok {
		return StateError{ContainerID: c.id, Operation: "dispose"}
	}

	if len(errs) > 0 {
		return DisposalError{ContainerID: c.id, Errors: errs}
	}
	return nil
}

func (c *Container) dispose() ([]error, bool) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, false
	}
	c.disposed = true

	children := make([]*Container, 0, len(c.children))
	for child := range c.children {
		children = append(children, child)
	}
	clear(c.children)

	factories := make([]*factory, 0, len(c.factories)+len(c.retired))
	for _, f := range c.factories {
		factories = append(factories, f)
	}
	factories = append(factories, c.retired...)
	clear(c.factories)
	c.retired = nil
	c.mu.Unlock()

	if c.parent != nil {
		c.parent.removeChild(c)
	}

	var errs []error
	for _, child := range children {
		// A child disposed concurrently reports nothing here.
		childErrs, _ := child.dispose()
		errs = append(errs, childErrs...)
	}

	for _, f := range factories {
		if err := f.dispose(); err != nil {
			errs = append(errs, err)
		}
	}

	c.opts.logger.Debug("disposed container",
		zap.String("container_id", c.id),
		zap.Int("children", len(children)),
		zap.Int("factories", len(factories)),
		zap.Int("errors", len(errs)),
	)

	return errs, true
}

func (c *Container) removeChild(child *Container) {
	c.mu.Lock()
	delete(c.children, child)
	c.mu.Unlock()
}

// store puts f under iface, replacing this container's previous factory for
// iface. The replaced factory is kept until disposal so that a singleton it
// already produced is still closed exactly once.
func (c *Container) store(iface reflect.Type, f *factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return StateError{ContainerID: c.id, Operation: "register"}
	}

	if old, ok := c.factories[iface]; ok {
		c.retired = append(c.retired, old)
	}
	f.owner = c.id
	c.factories[iface] = f

	return nil
}

// lookup finds the factory for t in this container or its ancestors. A
// concrete type without one gets a transient class factory that is not
// stored anywhere.
func (c *Container) lookup(t reflect.Type) (*factory, error) {
	for n := c; n != nil; n = n.parent {
		n.mu.Lock()
		if n.disposed {
			n.mu.Unlock()
			return nil, StateError{ContainerID: n.id, Operation: "resolve"}
		}
		f, ok := n.factories[t]
		n.mu.Unlock()

		if ok {
			return f, nil
		}
	}

	if t.Kind() == reflect.Interface {
		return nil, ResolutionError{ServiceType: t, Cause: ErrUnresolvedDependency}
	}

	return newClassFactory(t, t, Transient), nil
}

func (c *Container) checkActive(operation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return StateError{ContainerID: c.id, Operation: operation}
	}
	return nil
}

func validateInterface(iface reflect.Type) error {
	if iface == nil {
		return ArgumentError{Argument: "interface", Cause: ErrTypeNil}
	}

	if iface.Kind() != reflect.Interface {
		return ArgumentError{
			Argument: "interface",
			Cause:    fmt.Errorf("%w: %s", ErrNotInterface, formatType(iface)),
		}
	}

	return nil
}

// validateRegistration checks an (interface, implementation) pair for
// Register and for catalog default discovery.
func validateRegistration(iface, class reflect.Type) error {
	if err := validateInterface(iface); err != nil {
		return err
	}

	if class == nil {
		return ArgumentError{Argument: "implementation", Cause: ErrTypeNil}
	}

	if class.Kind() == reflect.Interface {
		return ArgumentError{
			Argument: "implementation",
			Cause:    fmt.Errorf("%w: %s", ErrNotConcrete, formatType(class)),
		}
	}

	if !class.AssignableTo(iface) {
		return TypeMismatchError{Expected: iface, Actual: class, Context: "registration"}
	}

	return nil
}
