package depends_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garagelab/depends"
	"github.com/garagelab/depends/internal/testutil"
)

// Integration tests that exercise the whole container together

func TestIntegration_OverrideScenario(t *testing.T) {
	root := testutil.NewRoot(t)
	require.NoError(t, depends.Register[testutil.IService2, *testutil.Service2ImplA](root, depends.Transient))

	child := testutil.NewChild(t, root)
	require.NoError(t, depends.Register[testutil.IService2, *testutil.Service2ImplB](child, depends.Singleton))

	c1 := testutil.AssertResolvesTo[testutil.IService2](t, child, service2ImplB)
	c2 := testutil.AssertResolvesTo[testutil.IService2](t, child, service2ImplB)
	testutil.AssertSameInstance(t, c1, c2)

	r1 := testutil.AssertResolvesTo[testutil.IService2](t, root, service2ImplA)
	r2 := testutil.AssertResolvesTo[testutil.IService2](t, root, service2ImplA)
	testutil.AssertDifferentInstances(t, r1, r2)

	// A grandchild sees the nearest registration.
	grandchild := testutil.NewChild(t, child)
	testutil.AssertSameInstance(t, c1, testutil.AssertResolvable[testutil.IService2](t, grandchild))

	require.NoError(t, child.Dispose())
	assert.True(t, grandchild.IsDisposed())
	testutil.AssertResolvesTo[testutil.IService2](t, root, service2ImplA)
}

func TestIntegration_RequestContainers(t *testing.T) {
	t.Run("each request gets its own database", func(t *testing.T) {
		t.Parallel()

		logger := &testutil.TestLoggerImpl{}

		root := testutil.NewRoot(t)
		require.NoError(t, depends.RegisterInstance[testutil.TestLogger](root, logger))
		require.NoError(t, depends.Register[testutil.TestDatabase, *testutil.TestDatabaseImpl](root, depends.Transient))

		const requests = 50
		var wg sync.WaitGroup
		errs := make([]error, requests)

		for i := range requests {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = handleRequest(root, i)
			}()
		}
		wg.Wait()

		for i, err := range errs {
			assert.NoError(t, err, "request %d", i)
		}
		assert.Len(t, logger.GetLogs(), requests)
	})

	t.Run("request resources are closed with the request", func(t *testing.T) {
		t.Parallel()

		root := testutil.NewRoot(t)
		var resources []*testutil.TestResource
		var mu sync.Mutex

		for range 5 {
			request := testutil.NewChild(t, root)
			require.NoError(t, depends.RegisterFunc(request, func(depends.Resolver) (testutil.IService1, error) {
				res := testutil.NewTestResource()
				mu.Lock()
				resources = append(resources, res)
				mu.Unlock()
				return res, nil
			}, depends.Singleton))

			first := testutil.AssertResolvable[testutil.IService1](t, request)
			testutil.AssertSameInstance(t, first, testutil.AssertResolvable[testutil.IService1](t, request))
			require.NoError(t, request.Dispose())
		}

		require.Len(t, resources, 5)
		for _, res := range resources {
			assert.Equal(t, 1, res.Closes())
		}
		testutil.AssertUnresolved[testutil.IService1](t, root)
	})
}

func handleRequest(root *depends.Container, id int) error {
	request, err := root.CreateChild()
	if err != nil {
		return err
	}
	defer request.Dispose()

	db, err := depends.Resolve[testutil.TestDatabase](request)
	if err != nil {
		return err
	}

	want := fmt.Sprintf("testdb: SELECT %d", id)
	if got := db.Query(fmt.Sprintf("SELECT %d", id)); got != want {
		return fmt.Errorf("query returned %q, want %q", got, want)
	}
	return nil
}

func TestIntegration_PluginCatalog(t *testing.T) {
	core := depends.NewCatalog()

	require.NoError(t, core.AddUnit("core", func(u *depends.Unit) error {
		if err := u.Define(depends.TypeOf[*testutil.TestLoggerImpl](), depends.DefaultOf[testutil.TestLogger](depends.Singleton)); err != nil {
			return err
		}
		return u.Define(depends.TypeOf[*testutil.TestDatabaseImpl](),
			depends.Constructor(testutil.NewTestDatabase),
			depends.DefaultOf[testutil.TestDatabase](depends.Transient),
		)
	}))
	require.NoError(t, core.AddUnit("reporting", func(u *depends.Unit) error {
		return fmt.Errorf("reporting plugin: %w", testutil.ErrTest)
	}))
	require.NoError(t, core.AddUnit("services", func(u *depends.Unit) error {
		return u.Define(service1Impl, depends.DefaultOf[testutil.IService1](depends.Singleton))
	}))

	root := testutil.NewRoot(t, depends.WithCatalog(core))

	loaded, failed := core.Units()
	assert.Equal(t, []string{"core", "services"}, loaded)
	assert.Equal(t, []string{"reporting"}, failed)

	db := testutil.AssertResolvable[testutil.TestDatabase](t, root)
	db.Query("SELECT 1")

	logger := testutil.AssertResolvable[testutil.TestLogger](t, root)
	assert.Equal(t, []string{"SELECT 1"}, logger.GetLogs())
	testutil.AssertResolvesTo[testutil.IService1](t, root, service1Impl)
}

func TestIntegration_ConfigurationFile(t *testing.T) {
	catalog := testutil.NewCatalog(t)
	require.NoError(t, catalog.Define(service1Impl, depends.DefaultOf[testutil.IService1](depends.Singleton)))
	require.NoError(t, catalog.Define(service2ImplB))
	require.NoError(t, catalog.Define(iService2))
	require.NoError(t, catalog.Define(iService3))

	config := strings.Join([]string{
		"- target: " + depends.TypeName(iService2),
		`  implementation: "` + depends.TypeName(service2ImplB) + `"`,
		"  lifetime: Singleton",
		"- target: " + depends.TypeName(iService3),
		`  implementation: "` + depends.TypeName(service3Impl) + `"`,
	}, "\n")

	records, err := depends.LoadConfiguration(strings.NewReader(config))
	require.NoError(t, err)

	root := testutil.NewRoot(t, depends.WithCatalog(catalog))
	require.NoError(t, root.Configure(records))

	s3 := testutil.AssertResolvable[testutil.IService3](t, root)
	assert.Equal(t, "service1", s3.Service1().Name())
	assert.Equal(t, "B", s3.Service2().Variant())
	testutil.AssertSameInstance(t, s3.Service2(), testutil.AssertResolvable[testutil.IService2](t, root))
}

func TestIntegration_ErrorPropagation(t *testing.T) {
	root := testutil.NewRoot(t)
	require.NoError(t, depends.Register[testutil.IService3, *testutil.Service3Impl](root, depends.Singleton))
	require.NoError(t, depends.Register[testutil.IService1, *testutil.Service1Impl](root, depends.Singleton))
	require.NoError(t, depends.RegisterFunc(root, func(depends.Resolver) (testutil.IService2, error) {
		return nil, testutil.ErrTest
	}, depends.Singleton))

	_, err := root.Resolve(iService3)
	require.Error(t, err)

	assert.ErrorIs(t, err, testutil.ErrTest)
	assert.ErrorIs(t, err, depends.ErrConstructionFailure)

	dep := testutil.AssertErrorType[depends.DependencyError](t, err)
	assert.Equal(t, service3Impl, dep.ServiceType)
	assert.Equal(t, iService2, dep.Dependency)

	// A fixed registration in a child recovers without touching the root.
	child := testutil.NewChild(t, root)
	require.NoError(t, depends.Register[testutil.IService2, *testutil.Service2ImplA](child, depends.Transient))
	require.NoError(t, depends.Register[testutil.IService3, *testutil.Service3Impl](child, depends.Singleton))

	s3 := testutil.AssertResolvable[testutil.IService3](t, child)
	assert.Equal(t, "A", s3.Service2().Variant())

	_, err = root.Resolve(iService3)
	assert.ErrorIs(t, err, testutil.ErrTest)
}
