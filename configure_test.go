package depends_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garagelab/depends"
	"github.com/garagelab/depends/internal/testutil"
)

func newConfigRoot(t *testing.T) *depends.Container {
	t.Helper()

	catalog := testutil.NewCatalog(t)
	require.NoError(t, catalog.Define(iService1))
	require.NoError(t, catalog.Define(iService2))
	require.NoError(t, catalog.Define(service1Impl))
	require.NoError(t, catalog.Define(service2ImplA))
	require.NoError(t, catalog.Define(service2ImplB))

	return testutil.NewRoot(t, depends.WithCatalog(catalog))
}

func TestContainer_Configure(t *testing.T) {
	t.Run("applies bindings in order", func(t *testing.T) {
		t.Parallel()

		root := newConfigRoot(t)
		err := root.Configure([]depends.Configuration{
			depends.Binding(depends.TypeName(iService1), depends.TypeName(service1Impl), depends.Singleton),
			depends.Binding(depends.TypeName(iService2), depends.TypeName(service2ImplA), depends.Transient),
			depends.Binding(depends.TypeName(iService2), depends.TypeName(service2ImplB), depends.Transient),
		})
		require.NoError(t, err)

		s1 := testutil.AssertResolvesTo[testutil.IService1](t, root, service1Impl)
		testutil.AssertSameInstance(t, s1, testutil.AssertResolvable[testutil.IService1](t, root))

		// The later record for the same interface wins.
		assert.Equal(t, "B", testutil.AssertResolvable[testutil.IService2](t, root).Variant())
	})

	t.Run("configuring a child leaves the parent", func(t *testing.T) {
		t.Parallel()

		root := newConfigRoot(t)
		child := testutil.NewChild(t, root)

		require.NoError(t, child.Configure([]depends.Configuration{
			depends.Binding(depends.TypeName(iService2), depends.TypeName(service2ImplB), depends.Transient),
		}))

		assert.Equal(t, "B", testutil.AssertResolvable[testutil.IService2](t, child).Variant())
		testutil.AssertUnresolved[testutil.IService2](t, root)
	})

	t.Run("empty list does nothing", func(t *testing.T) {
		t.Parallel()

		root := newConfigRoot(t)
		require.NoError(t, root.Configure([]depends.Configuration{}))
		assert.False(t, root.IsRegistered(iService1))
	})

	t.Run("stops at the first failing record", func(t *testing.T) {
		t.Parallel()

		root := newConfigRoot(t)
		err := root.Configure([]depends.Configuration{
			depends.Binding(depends.TypeName(iService1), depends.TypeName(service1Impl), depends.Singleton),
			depends.Binding(depends.TypeName(iService1), depends.TypeName(service2ImplA), depends.Singleton),
			depends.Binding(depends.TypeName(iService2), depends.TypeName(service2ImplA), depends.Singleton),
		})
		require.ErrorIs(t, err, depends.ErrTypeMismatch)
		assert.True(t, strings.HasPrefix(err.Error(), "configuration 1: "), err.Error())

		// Records before the failure stay applied.
		testutil.AssertResolvesTo[testutil.IService1](t, root, service1Impl)
		assert.False(t, root.IsRegistered(iService2))
	})

	target := depends.TypeName(iService1)
	impl := depends.TypeName(service1Impl)
	missing := "github.com/garagelab/depends/internal/testutil.Missing"
	empty := ""

	testutil.RunErrorTestCases(t, []testutil.ErrorTestCase{
		{
			Name:      "nil list",
			Setup:     newConfigRoot,
			Action:    func(c *depends.Container) error { return c.Configure(nil) },
			WantError: depends.ErrConfigurationNil,
			CheckErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, depends.ErrInvalidArgument)
			},
		},
		{
			Name:      "absent target",
			Setup:     newConfigRoot,
			Action:    func(c *depends.Container) error { return c.Configure([]depends.Configuration{{Implementation: &impl}}) },
			WantError: depends.ErrNameAbsent,
			CheckErr: func(t *testing.T, err error) {
				arg := testutil.AssertErrorType[depends.ArgumentError](t, err)
				assert.Equal(t, "target", arg.Argument)
			},
		},
		{
			Name:      "absent implementation",
			Setup:     newConfigRoot,
			Action:    func(c *depends.Container) error { return c.Configure([]depends.Configuration{{Target: &target}}) },
			WantError: depends.ErrNameAbsent,
			CheckErr: func(t *testing.T, err error) {
				arg := testutil.AssertErrorType[depends.ArgumentError](t, err)
				assert.Equal(t, "implementation", arg.Argument)
			},
		},
		{
			Name:  "empty target name",
			Setup: newConfigRoot,
			Action: func(c *depends.Container) error {
				return c.Configure([]depends.Configuration{{Target: &empty, Implementation: &impl}})
			},
			WantError: depends.ErrTypeNotFound,
			CheckErr: func(t *testing.T, err error) {
				assert.NotErrorIs(t, err, depends.ErrInvalidArgument)
			},
		},
		{
			Name:  "unknown implementation name",
			Setup: newConfigRoot,
			Action: func(c *depends.Container) error {
				return c.Configure([]depends.Configuration{depends.Binding(target, missing, depends.Transient)})
			},
			WantError: depends.ErrTypeNotFound,
			CheckErr: func(t *testing.T, err error) {
				loadErr := testutil.AssertErrorType[depends.TypeLoadError](t, err)
				assert.Equal(t, missing, loadErr.Name)
			},
		},
		{
			Name:  "invalid lifetime",
			Setup: newConfigRoot,
			Action: func(c *depends.Container) error {
				return c.Configure([]depends.Configuration{depends.Binding(target, impl, depends.Lifetime(7))})
			},
			WantError: depends.ErrInvalidLifetime,
		},
		{
			Name: "disposed container",
			Setup: func(t *testing.T) *depends.Container {
				root := newConfigRoot(t)
				require.NoError(t, root.Dispose())
				return root
			},
			Action:    func(c *depends.Container) error { return c.Configure(nil) },
			WantError: depends.ErrInvalidState,
		},
	})
}

func TestLoadConfiguration(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		input := `
- target: github.com/garagelab/depends/internal/testutil.IService1
  implementation: "*github.com/garagelab/depends/internal/testutil.Service1Impl"
  lifetime: Singleton
- target: github.com/garagelab/depends/internal/testutil.IService2
  implementation: "*github.com/garagelab/depends/internal/testutil.Service2ImplB"
`
		records, err := depends.LoadConfiguration(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, depends.TypeName(iService1), *records[0].Target)
		assert.Equal(t, depends.TypeName(service1Impl), *records[0].Implementation)
		assert.Equal(t, depends.Singleton, records[0].Lifetime)
		assert.Equal(t, depends.Transient, records[1].Lifetime)

		root := newConfigRoot(t)
		require.NoError(t, root.Configure(records))
		testutil.AssertResolvesTo[testutil.IService1](t, root, service1Impl)
		testutil.AssertResolvesTo[testutil.IService2](t, root, service2ImplB)
	})

	t.Run("json", func(t *testing.T) {
		input := `[{"target": "github.com/garagelab/depends/internal/testutil.IService2", ` +
			`"implementation": "*github.com/garagelab/depends/internal/testutil.Service2ImplA", "lifetime": "singleton"}]`

		records, err := depends.LoadConfiguration(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, depends.Singleton, records[0].Lifetime)
	})

	t.Run("null names stay absent", func(t *testing.T) {
		records, err := depends.LoadConfiguration(strings.NewReader("- target: null\n  implementation: \"\"\n"))
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.Nil(t, records[0].Target)
		require.NotNil(t, records[0].Implementation)
		assert.Empty(t, *records[0].Implementation)

		err = newConfigRoot(t).Configure(records)
		assert.ErrorIs(t, err, depends.ErrNameAbsent)
	})

	t.Run("empty input", func(t *testing.T) {
		records, err := depends.LoadConfiguration(strings.NewReader(""))
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := depends.LoadConfiguration(strings.NewReader("- target: a.B\n  scope: request\n"))
		assert.ErrorIs(t, err, depends.ErrInvalidArgument)
	})

	t.Run("invalid lifetime", func(t *testing.T) {
		_, err := depends.LoadConfiguration(strings.NewReader("- target: a.B\n  lifetime: Scoped\n"))
		assert.ErrorIs(t, err, depends.ErrInvalidArgument)
	})

	t.Run("nil reader", func(t *testing.T) {
		_, err := depends.LoadConfiguration(nil)
		assert.ErrorIs(t, err, depends.ErrInvalidArgument)
	})
}
