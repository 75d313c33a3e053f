package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garagelab/depends"
)

// NewCatalog returns a catalog that knows the constructors of the test types.
func NewCatalog(t *testing.T, opts ...depends.CatalogOption) *depends.Catalog {
	t.Helper()

	catalog := depends.NewCatalog(opts...)
	require.NoError(t, catalog.Define(depends.TypeOf[*Service3Impl](), depends.Constructor(NewService3)))
	require.NoError(t, catalog.Define(depends.TypeOf[*TestDatabaseImpl](), depends.Constructor(NewTestDatabase)))
	require.NoError(t, catalog.Define(depends.TypeOf[*CircularAImpl](), depends.Constructor(NewCircularA)))
	require.NoError(t, catalog.Define(depends.TypeOf[*CircularBImpl](), depends.Constructor(NewCircularB)))
	require.NoError(t, catalog.Define(depends.TypeOf[*SelfDependent](), depends.Constructor(NewSelfDependent)))
	return catalog
}

// NewRoot creates a root container that is disposed when the test ends.
// Without options it uses NewCatalog.
func NewRoot(t *testing.T, opts ...depends.Option) *depends.Container {
	t.Helper()

	if len(opts) == 0 {
		opts = []depends.Option{depends.WithCatalog(NewCatalog(t))}
	}

	root, err := depends.New(opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if !root.IsDisposed() {
			root.Dispose()
		}
	})
	return root
}

// NewChild creates a child of parent.
func NewChild(t *testing.T, parent *depends.Container) *depends.Container {
	t.Helper()

	child, err := parent.CreateChild()
	require.NoError(t, err)
	return child
}

// ErrorTestCase represents a test case for error scenarios
type ErrorTestCase struct {
	Name      string
	Setup     func(t *testing.T) *depends.Container
	Action    func(c *depends.Container) error
	WantError error
	CheckErr  func(t *testing.T, err error)
}

// RunErrorTestCases executes error test cases
func RunErrorTestCases(t *testing.T, cases []ErrorTestCase) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			setup := tc.Setup
			if setup == nil {
				setup = func(t *testing.T) *depends.Container { return NewRoot(t) }
			}

			err := tc.Action(setup(t))

			if tc.WantError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.WantError)
			}

			if tc.CheckErr != nil {
				tc.CheckErr(t, err)
			}
		})
	}
}
