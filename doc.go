// Package depends provides a hierarchical runtime dependency resolver for Go
// applications.
//
// # Overview
//
// A Container maps interface types to factories. Resolving an interface
// finds the nearest registration in the container or its ancestors, builds
// the implementation through its constructor and resolves the constructor's
// parameters recursively.
//
//   - Two lifetimes: Singleton (one instance per registration) and Transient
//   - Child containers that shadow their parent's registrations
//   - Constructor injection with an explicit injection point
//   - Default implementations declared in a type catalog
//   - Bindings loaded from YAML or JSON by type name
//   - Cascading disposal of containers and the singletons they own
//
// # Basic Usage
//
//	root, err := depends.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer root.Dispose()
//
//	depends.Register[Logger, *ConsoleLogger](root, depends.Singleton)
//	depends.Register[UserStore, *SQLUserStore](root, depends.Transient)
//
//	store, err := depends.Resolve[UserStore](root)
//
// # Constructors
//
// Struct and pointer-to-struct types without declared constructors are built
// from their zero value. Constructors with parameters are declared in a
// Catalog:
//
//	catalog := depends.NewCatalog()
//	catalog.Define(depends.TypeOf[*SQLUserStore](),
//	    depends.Constructor(NewSQLUserStore), // func(Logger, *sql.DB) *SQLUserStore
//	)
//
//	root, err := depends.New(depends.WithCatalog(catalog))
//
// A constructor is a func(deps...) T or func(deps...) (T, error). When a type
// has more than one constructor, exactly one must be declared with Injector;
// otherwise resolution fails with ErrAmbiguousInjectionPoint.
//
// # Default Implementations
//
// A type can declare itself the default implementation of an interface:
//
//	catalog.Define(depends.TypeOf[*ConsoleLogger](),
//	    depends.DefaultOf[Logger](depends.Singleton),
//	)
//
// New registers every default on the root container, so explicit
// registrations made later, on the root or on a child, take precedence.
// Two types claiming the same interface make New fail with
// ErrDuplicateDefault.
//
// # Child Containers
//
//	child, err := root.CreateChild()
//	defer child.Dispose()
//
//	depends.Register[UserStore, *CachedUserStore](child, depends.Singleton)
//
// Registrations on the child are invisible to the root. Dispose closes every
// Disposable singleton the container owns and disposes its children.
//
// # Error Handling
//
// Every error matches a sentinel through errors.Is:
//   - ErrInvalidArgument: nil type, instance, factory or configuration
//   - ErrTypeMismatch: an implementation not assignable to its interface
//   - ErrUnresolvedDependency: no registration reachable for an interface
//   - ErrAmbiguousInjectionPoint: constructor selection failed
//   - ErrDuplicateDefault: two default implementations for one interface
//   - ErrConstructionFailure: a constructor or factory failed
//   - ErrInvalidState: the container has been disposed
//   - ErrTypeNotFound: a configuration type name is unknown
//   - ErrCircularDependency: a type depends on itself
package depends
