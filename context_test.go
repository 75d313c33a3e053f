package depends_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garagelab/depends"
	"github.com/garagelab/depends/internal/testutil"
)

func TestContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		root := testutil.NewRoot(t)
		child := testutil.NewChild(t, root)

		ctx := depends.WithContainer(context.Background(), root)
		got, err := depends.FromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, root, got)

		// The innermost container wins.
		got, err = depends.FromContext(depends.WithContainer(ctx, child))
		require.NoError(t, err)
		assert.Same(t, child, got)
	})

	t.Run("missing container", func(t *testing.T) {
		_, err := depends.FromContext(context.Background())
		assert.ErrorIs(t, err, depends.ErrNoContainer)
		assert.ErrorIs(t, err, depends.ErrInvalidArgument)
	})

	t.Run("nil container", func(t *testing.T) {
		ctx := depends.WithContainer(context.Background(), nil)
		_, err := depends.FromContext(ctx)
		assert.ErrorIs(t, err, depends.ErrNoContainer)
	})

	t.Run("nil context", func(t *testing.T) {
		var ctx context.Context
		_, err := depends.FromContext(ctx)
		assert.ErrorIs(t, err, depends.ErrNoContainer)
	})
}
