package depends

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/garagelab/depends/internal/graph"
)

// ========================================
// Error Kinds (Sentinel Errors)
// ========================================
// Every error returned by this package matches one of these kinds through
// errors.Is. Typed errors below carry the details; causes they wrap stay
// visible to errors.Is as well.

var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrTypeMismatch            = errors.New("type mismatch")
	ErrUnresolvedDependency    = errors.New("unresolved dependency")
	ErrAmbiguousInjectionPoint = errors.New("ambiguous injection point")
	ErrDuplicateDefault        = errors.New("duplicate default implementation")
	ErrConstructionFailure     = errors.New("construction failed")
	ErrInvalidState            = errors.New("container has been disposed")
	ErrTypeNotFound            = errors.New("type not found")
	ErrCircularDependency      = graph.ErrCircularDependency
	ErrInternal                = errors.New("internal consistency failure")
)

// Causes carried by ArgumentError.
var (
	ErrTypeNil          = errors.New("type cannot be nil")
	ErrNotInterface     = errors.New("type must be an interface")
	ErrNotConcrete      = errors.New("type must be concrete")
	ErrInstanceNil      = errors.New("instance cannot be nil")
	ErrFactoryNil       = errors.New("factory function cannot be nil")
	ErrConfigurationNil = errors.New("configuration list cannot be nil")
	ErrNameAbsent       = errors.New("type name is absent")
	ErrInvalidLifetime  = errors.New("invalid lifetime")
	ErrConstructorNil   = errors.New("constructor cannot be nil")
	ErrNoContainer      = errors.New("no container in context")
)

var (
	_ error = ArgumentError{}
	_ error = LifetimeError{}
	_ error = TypeMismatchError{}
	_ error = ResolutionError{}
	_ error = DependencyError{}
	_ error = InjectionPointError{}
	_ error = DuplicateDefaultError{}
	_ error = ConstructionError{}
	_ error = StateError{}
	_ error = TypeLoadError{}
	_ error = DisposalError{}
	_ error = CircularDependencyError{}
)

// CircularDependencyError reports a type requested again while it was still
// being constructed.
type CircularDependencyError = graph.CircularDependencyError

// ArgumentError indicates a nil, empty or otherwise unusable argument.
type ArgumentError struct {
	Argument string
	Cause    error
}

func (e ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %v", e.Argument, e.Cause)
}

func (e ArgumentError) Unwrap() error {
	return e.Cause
}

func (e ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

func (e LifetimeError) Unwrap() error {
	return ErrInvalidLifetime
}

func (e LifetimeError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// TypeMismatchError indicates a class, instance or factory result that is
// not assignable to the interface it is registered for.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "registration", "instance", "factory result", ...
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s is not assignable to %s", e.Context, formatType(e.Actual), formatType(e.Expected))
}

func (e TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ResolutionError indicates that no factory exists for an interface anywhere
// in the container chain.
type ResolutionError struct {
	ServiceType reflect.Type
	Cause       error
}

func (e ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("no implementation registered for %s", formatType(e.ServiceType)))

	if e.Cause != nil && e.Cause != ErrUnresolvedDependency {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// DependencyError wraps the failure of one constructor parameter.
// It has no kind of its own; errors.Is sees through to the cause.
type DependencyError struct {
	ServiceType reflect.Type
	Dependency  reflect.Type
	Index       int
	Cause       error
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("resolve %s: parameter %d (%s): %v",
		formatType(e.ServiceType), e.Index, formatType(e.Dependency), e.Cause)
}

func (e DependencyError) Unwrap() error {
	return e.Cause
}

// InjectionPointError indicates that constructor selection did not end with
// exactly one constructor.
type InjectionPointError struct {
	Type       reflect.Type
	Candidates int
	Marked     int
}

func (e InjectionPointError) Error() string {
	if e.Candidates == 0 {
		return fmt.Sprintf("cannot determine injection point for %s: no constructors", formatType(e.Type))
	}
	return fmt.Sprintf("cannot determine injection point for %s: %d constructors, %d marked as injector",
		formatType(e.Type), e.Candidates, e.Marked)
}

func (e InjectionPointError) Is(target error) bool {
	return target == ErrAmbiguousInjectionPoint
}

// DuplicateDefaultError indicates two classes claiming to be the default
// implementation of the same interface.
type DuplicateDefaultError struct {
	Interface       reflect.Type
	Implementations []reflect.Type
}

func (e DuplicateDefaultError) Error() string {
	names := make([]string, len(e.Implementations))
	for i, t := range e.Implementations {
		names[i] = formatType(t)
	}
	return fmt.Sprintf("multiple default implementations for %s: %s",
		formatType(e.Interface), strings.Join(names, ", "))
}

func (e DuplicateDefaultError) Is(target error) bool {
	return target == ErrDuplicateDefault
}

// ConstructionError indicates that a constructor or factory function failed
// to produce an instance.
type ConstructionError struct {
	ServiceType reflect.Type
	Cause       error
	Panic       any
	Stack       []byte
}

func (e ConstructionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("construct %s: panic: %v", formatType(e.ServiceType), e.Panic)
	}
	return fmt.Sprintf("construct %s: %v", formatType(e.ServiceType), e.Cause)
}

func (e ConstructionError) Unwrap() error {
	return e.Cause
}

func (e ConstructionError) Is(target error) bool {
	return target == ErrConstructionFailure
}

// StateError indicates an operation on a disposed container or factory.
type StateError struct {
	ContainerID string
	Operation   string
}

func (e StateError) Error() string {
	if e.ContainerID == "" {
		return fmt.Sprintf("%s: %v", e.Operation, ErrInvalidState)
	}
	return fmt.Sprintf("%s on container %s: %v", e.Operation, e.ContainerID, ErrInvalidState)
}

func (e StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// TypeLoadError indicates a type name the catalog cannot resolve.
type TypeLoadError struct {
	Name string
}

func (e TypeLoadError) Error() string {
	if e.Name == "" {
		return "cannot load type: empty name"
	}
	return fmt.Sprintf("cannot load type %q", e.Name)
}

func (e TypeLoadError) Is(target error) bool {
	return target == ErrTypeNotFound
}

// DisposalError aggregates the Close errors of singleton instances.
// Disposal itself always completes.
type DisposalError struct {
	ContainerID string
	Errors      []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("container %s disposal failed: %v", e.ContainerID, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("container %s disposal failed with %d errors:", e.ContainerID, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsUnresolved reports whether err is an UnresolvedDependency error.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolvedDependency)
}

// IsDisposed reports whether err was caused by using a disposed container.
func IsDisposed(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsCircularDependency reports whether err contains a dependency cycle.
func IsCircularDependency(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
