package depends_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garagelab/depends"
	"github.com/garagelab/depends/internal/testutil"
)

func TestContainer_Dispose(t *testing.T) {
	t.Run("disposed container rejects every operation", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		require.NoError(t, root.Dispose())

		testutil.AssertContainerDisposed(t, root)
	})

	t.Run("second dispose fails", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		require.NoError(t, root.Dispose())

		err := root.Dispose()
		state := testutil.AssertErrorType[depends.StateError](t, err)
		assert.Equal(t, root.ID(), state.ContainerID)
		assert.Equal(t, "dispose", state.Operation)
	})

	t.Run("cascades to descendants and leaves the parent usable", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		require.NoError(t, root.Register(iService1, service1Impl, depends.Singleton))

		middle := testutil.NewChild(t, root)
		leafA := testutil.NewChild(t, middle)
		leafB := testutil.NewChild(t, middle)
		grandchild := testutil.NewChild(t, leafA)

		require.NoError(t, middle.Dispose())

		for _, c := range []*depends.Container{middle, leafA, leafB, grandchild} {
			testutil.AssertContainerDisposed(t, c)
		}

		assert.False(t, root.IsDisposed())
		testutil.AssertResolvable[testutil.IService1](t, root)

		child, err := root.CreateChild()
		require.NoError(t, err)
		testutil.AssertResolvable[testutil.IService1](t, child)
	})

	t.Run("closes owned singletons exactly once", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		child := testutil.NewChild(t, root)

		instance := testutil.NewTestResource()
		require.NoError(t, child.RegisterInstance(iService1, instance))

		built := depends.TypeOf[*testutil.TestResource]()
		require.NoError(t, child.Register(depends.TypeOf[depends.Disposable](), built, depends.Singleton))
		resolved, err := depends.Resolve[depends.Disposable](child)
		require.NoError(t, err)

		require.NoError(t, root.Dispose())

		assert.Equal(t, 1, instance.Closes())
		assert.Equal(t, 1, resolved.(*testutil.TestResource).Closes())
	})

	t.Run("transient instances are untouched", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		require.NoError(t, root.Register(iService1, depends.TypeOf[*testutil.TestResource](), depends.Transient))

		first := testutil.AssertResolvable[testutil.IService1](t, root).(*testutil.TestResource)
		second := testutil.AssertResolvable[testutil.IService1](t, root).(*testutil.TestResource)

		require.NoError(t, root.Dispose())

		assert.False(t, first.IsDisposed())
		assert.False(t, second.IsDisposed())
	})

	t.Run("singletons never resolved are not built", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		built := 0
		require.NoError(t, root.RegisterFunc(iService1, func(depends.Resolver) (any, error) {
			built++
			return testutil.NewTestResource(), nil
		}, depends.Singleton))

		require.NoError(t, root.Dispose())
		assert.Zero(t, built)
	})

	t.Run("parent singletons outlive the child", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		require.NoError(t, root.Register(iService1, depends.TypeOf[*testutil.TestResource](), depends.Singleton))

		child := testutil.NewChild(t, root)
		shared := testutil.AssertResolvable[testutil.IService1](t, child).(*testutil.TestResource)

		require.NoError(t, child.Dispose())
		assert.False(t, shared.IsDisposed())

		require.NoError(t, root.Dispose())
		assert.Equal(t, 1, shared.Closes())
	})

	t.Run("replaced singletons are still closed", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		first := testutil.NewTestResource()
		second := testutil.NewTestResource()

		require.NoError(t, root.RegisterInstance(iService1, first))
		require.NoError(t, root.RegisterInstance(iService1, second))

		testutil.AssertSameInstance(t, second, testutil.AssertResolvable[testutil.IService1](t, root))
		require.NoError(t, root.Dispose())

		assert.Equal(t, 1, first.Closes())
		assert.Equal(t, 1, second.Closes())
	})

	t.Run("close errors are collected and do not stop disposal", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.DebugLevel)
		root := testutil.NewRoot(t,
			depends.WithCatalog(testutil.NewCatalog(t)),
			depends.WithLogger(zap.New(core)),
		)

		child := testutil.NewChild(t, root)
		failing := testutil.NewTestResourceWithError(testutil.ErrDisposal)
		healthy := testutil.NewTestResource()
		require.NoError(t, child.RegisterInstance(iService1, failing))
		require.NoError(t, root.RegisterInstance(depends.TypeOf[depends.Disposable](), healthy))

		err := root.Dispose()
		require.Error(t, err)
		assert.ErrorIs(t, err, testutil.ErrDisposal)
		assert.NotErrorIs(t, err, depends.ErrInvalidState)

		disposal := testutil.AssertErrorType[depends.DisposalError](t, err)
		assert.Equal(t, root.ID(), disposal.ContainerID)
		assert.Len(t, disposal.Errors, 1)

		assert.Equal(t, 1, failing.Closes())
		assert.Equal(t, 1, healthy.Closes())
		assert.True(t, child.IsDisposed())

		entries := logs.FilterMessage("disposed container").All()
		require.Len(t, entries, 2)
		assert.Equal(t, child.ID(), entries[0].ContextMap()["container_id"])
		assert.Equal(t, root.ID(), entries[1].ContextMap()["container_id"])
	})

	t.Run("disposing a child detaches it", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		child := testutil.NewChild(t, root)
		resource := testutil.NewTestResource()
		require.NoError(t, child.RegisterInstance(iService1, resource))

		require.NoError(t, child.Dispose())
		require.NoError(t, root.Dispose())

		assert.Equal(t, 1, resource.Closes())
	})

	t.Run("root singleton keeps what the first requesting child supplied", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		require.NoError(t, root.Register(iService2, service2ImplA, depends.Transient))
		require.NoError(t, root.Register(iService3, service3Impl, depends.Singleton))

		child := testutil.NewChild(t, root)
		resource := testutil.NewTestResource()
		require.NoError(t, child.RegisterInstance(iService1, resource))

		fromChild := testutil.AssertResolvable[testutil.IService3](t, child)
		require.NoError(t, child.Dispose())

		fromRoot := testutil.AssertResolvable[testutil.IService3](t, root)
		assert.Same(t, fromChild, fromRoot)
		assert.Same(t, resource, fromRoot.Service1())
		assert.True(t, resource.IsDisposed())
	})
}
