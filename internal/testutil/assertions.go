package testutil

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garagelab/depends"
)

// AssertResolvable checks that T resolves to a non-nil instance.
func AssertResolvable[T any](t *testing.T, r depends.Resolver) T {
	t.Helper()
	service, err := depends.Resolve[T](r)
	require.NoError(t, err, "failed to resolve %s", depends.TypeOf[T]())
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertResolvesTo checks that T resolves to an instance whose dynamic type
// is exactly want.
func AssertResolvesTo[T any](t *testing.T, r depends.Resolver, want reflect.Type) T {
	t.Helper()
	service := AssertResolvable[T](t, r)
	assert.Equal(t, want, reflect.TypeOf(service))
	return service
}

// AssertUnresolved checks that resolving T fails with ErrUnresolvedDependency.
func AssertUnresolved[T any](t *testing.T, r depends.Resolver) {
	t.Helper()
	_, err := depends.Resolve[T](r)
	assert.Error(t, err)
	assert.True(t, depends.IsUnresolved(err), "expected unresolved dependency error, got: %v", err)
}

// AssertSameInstance verifies two services are the same instance
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two services are different instances
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertContainerDisposed checks that every operation on c fails with
// ErrInvalidState.
func AssertContainerDisposed(t *testing.T, c *depends.Container) {
	t.Helper()
	assert.True(t, c.IsDisposed(), "container should be disposed")

	iface := depends.TypeOf[IService1]()
	class := depends.TypeOf[*Service1Impl]()

	_, err := c.Resolve(iface)
	AssertDisposed(t, err)

	_, err = c.Resolve(class)
	AssertDisposed(t, err)

	AssertDisposed(t, c.Register(iface, class, depends.Transient))
	AssertDisposed(t, c.RegisterInstance(iface, &Service1Impl{}))
	AssertDisposed(t, c.RegisterFunc(iface, func(depends.Resolver) (any, error) { return &Service1Impl{}, nil }, depends.Transient))
	AssertDisposed(t, c.Configure([]depends.Configuration{}))
	AssertDisposed(t, c.Dispose())

	_, err = c.CreateChild()
	AssertDisposed(t, err)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertCircularDependency checks if an error is a circular dependency error
func AssertCircularDependency(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, depends.IsCircularDependency(err), "expected circular dependency error, got: %v", err)
}

// AssertDisposed checks if an error indicates a disposed container
func AssertDisposed(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, depends.IsDisposed(err), "expected disposed error, got: %v", err)
}
