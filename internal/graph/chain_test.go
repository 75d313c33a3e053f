package graph_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/garagelab/depends/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	nodeA struct{}
	nodeB struct{}
	nodeC struct{}
)

var (
	typeA = reflect.TypeOf(nodeA{})
	typeB = reflect.TypeOf(nodeB{})
	typeC = reflect.TypeOf(nodeC{})
)

func TestChain_Empty(t *testing.T) {
	var c *graph.Chain

	assert.Equal(t, 0, c.Depth())
	assert.False(t, c.Contains(typeA))
	assert.Empty(t, c.Path())
	assert.NoError(t, c.Check(typeA))
}

func TestChain_Push(t *testing.T) {
	t.Run("builds path outermost first", func(t *testing.T) {
		var root *graph.Chain
		c := root.Push(typeA).Push(typeB).Push(typeC)

		assert.Equal(t, 3, c.Depth())
		assert.Equal(t, []reflect.Type{typeA, typeB, typeC}, c.Path())
		assert.True(t, c.Contains(typeB))
	})

	t.Run("does not mutate receiver", func(t *testing.T) {
		var root *graph.Chain
		base := root.Push(typeA)
		left := base.Push(typeB)
		right := base.Push(typeC)

		assert.Equal(t, 1, base.Depth())
		assert.False(t, left.Contains(typeC))
		assert.False(t, right.Contains(typeB))
	})

	t.Run("safe for concurrent pushes", func(t *testing.T) {
		var root *graph.Chain
		base := root.Push(typeA)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c := base.Push(typeB)
				assert.Equal(t, 2, c.Depth())
			}()
		}
		wg.Wait()
	})
}

func TestChain_Check(t *testing.T) {
	var root *graph.Chain
	c := root.Push(typeA).Push(typeB).Push(typeC)

	err := c.Check(typeB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrCircularDependency))

	var cycle graph.CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []reflect.Type{typeB, typeC, typeB}, cycle.Path)
	assert.Contains(t, err.Error(), "(cycle)")
}
