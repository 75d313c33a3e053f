// Package graph detects circular dependencies. Chain tracks the types being
// constructed by a single resolution; DependencyGraph checks registrations
// statically, before anything is constructed.
package graph

import "reflect"

// Chain is an immutable, singly linked list of the types currently under
// construction, innermost first. The nil *Chain is the empty chain and is
// ready to use.
//
// Chains are shared between the goroutines of one resolution tree without
// locking because Push never mutates its receiver.
type Chain struct {
	parent *Chain
	typ    reflect.Type
	depth  int
}

// Push returns a new chain with t as the innermost type.
func (c *Chain) Push(t reflect.Type) *Chain {
	return &Chain{parent: c, typ: t, depth: c.Depth() + 1}
}

// Depth returns the number of types in the chain.
func (c *Chain) Depth() int {
	if c == nil {
		return 0
	}
	return c.depth
}

// Contains reports whether t is already under construction.
func (c *Chain) Contains(t reflect.Type) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.typ == t {
			return true
		}
	}
	return false
}

// Path returns the chain outermost first.
func (c *Chain) Path() []reflect.Type {
	path := make([]reflect.Type, c.Depth())
	i := len(path) - 1
	for cur := c; cur != nil; cur = cur.parent {
		path[i] = cur.typ
		i--
	}
	return path
}

// Check returns a CircularDependencyError if t is already in the chain.
// The reported path starts at the first occurrence of t.
func (c *Chain) Check(t reflect.Type) error {
	if !c.Contains(t) {
		return nil
	}

	path := c.Path()
	start := 0
	for i, p := range path {
		if p == t {
			start = i
			break
		}
	}

	cycle := make([]reflect.Type, 0, len(path)-start+1)
	cycle = append(cycle, path[start:]...)
	cycle = append(cycle, t)
	return CircularDependencyError{Path: cycle}
}
