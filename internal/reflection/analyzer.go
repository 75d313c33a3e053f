package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Constructor analysis errors.
var (
	ErrNotFunc        = errors.New("constructor must be a function")
	ErrNilFunc        = errors.New("constructor cannot be nil")
	ErrVariadic       = errors.New("variadic constructors are not supported")
	ErrReturnCount    = errors.New("constructor must return the type, optionally followed by an error")
	ErrReturnType     = errors.New("constructor returns a different type")
	ErrNoZeroValue    = errors.New("type has no implicit zero-value constructor")
	ErrTargetRequired = errors.New("target type cannot be nil")
)

// Constructor is an analyzed way of building a target type: either a
// function whose first result is exactly the target, or the target's zero
// value.
type Constructor struct {
	// Target is the type the constructor produces.
	Target reflect.Type

	// Value is the function; invalid for zero-value constructors.
	Value reflect.Value

	// Params are the parameter types, in order.
	Params []reflect.Type

	// HasErrorReturn is true for func(...) (T, error).
	HasErrorReturn bool
}

// IsZeroValue reports whether the constructor builds the zero value.
func (c *Constructor) IsZeroValue() bool {
	return !c.Value.IsValid()
}

// PanicError is returned by Call when the constructor panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("constructor panicked: %v", e.Value)
}

// Analyzer validates constructor functions and caches the results.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[cacheKey]*Constructor
}

type cacheKey struct {
	fn     uintptr
	target reflect.Type
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[cacheKey]*Constructor),
	}
}

// Analyze checks that fn is a constructor for target. A nil fn selects the
// implicit zero-value constructor, which only struct and pointer-to-struct
// types have.
func (a *Analyzer) Analyze(fn any, target reflect.Type) (*Constructor, error) {
	if target == nil {
		return nil, ErrTargetRequired
	}

	if fn == nil {
		return ZeroValue(target)
	}

	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %T", ErrNotFunc, fn)
	}
	if val.IsNil() {
		return nil, ErrNilFunc
	}

	key := cacheKey{fn: val.Pointer(), target: target}

	a.mu.RLock()
	if cached, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info, err := analyzeFunc(val, target)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[key] = info
	a.mu.Unlock()

	return info, nil
}

func analyzeFunc(val reflect.Value, target reflect.Type) (*Constructor, error) {
	fnType := val.Type()

	if fnType.IsVariadic() {
		return nil, fmt.Errorf("%w: %s", ErrVariadic, fnType)
	}

	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errType {
			return nil, fmt.Errorf("%w: %s", ErrReturnCount, fnType)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrReturnCount, fnType)
	}

	if fnType.Out(0) != target {
		return nil, fmt.Errorf("%w: %s returns %s, want %s", ErrReturnType, fnType, fnType.Out(0), target)
	}

	params := make([]reflect.Type, fnType.NumIn())
	for i := range params {
		params[i] = fnType.In(i)
	}

	return &Constructor{
		Target:         target,
		Value:          val,
		Params:         params,
		HasErrorReturn: fnType.NumOut() == 2,
	}, nil
}

// HasZeroValue reports whether t has an implicit zero-value constructor.
func HasZeroValue(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// ZeroValue returns the implicit constructor for a struct or pointer-to-struct.
func ZeroValue(target reflect.Type) (*Constructor, error) {
	if !HasZeroValue(target) {
		return nil, fmt.Errorf("%w: %s", ErrNoZeroValue, target)
	}
	return &Constructor{Target: target}, nil
}

// Call invokes the constructor. Panics are recovered and returned as
// *PanicError; a non-nil error result is returned as is.
func (c *Constructor) Call(args []reflect.Value) (result reflect.Value, err error) {
	if c.IsZeroValue() {
		if c.Target.Kind() == reflect.Pointer {
			return reflect.New(c.Target.Elem()), nil
		}
		return reflect.New(c.Target).Elem(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			result = reflect.Value{}
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	out := c.Value.Call(args)
	if c.HasErrorReturn && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}

	return out[0], nil
}

// IsNil reports whether v is nil or holds a nil pointer, map, slice,
// channel, function or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
