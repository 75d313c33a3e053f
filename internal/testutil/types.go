package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrConstructor     = errors.New("constructor error")
	ErrDisposal        = errors.New("disposal error")
	ErrAlreadyDisposed = errors.New("already disposed")
)

// IService1 is implemented by Service1Impl.
type IService1 interface {
	Name() string
}

// IService2 has two implementations so that overrides are observable.
type IService2 interface {
	Variant() string
}

// IService3 depends on the other two services.
type IService3 interface {
	Service1() IService1
	Service2() IService2
}

// Service1Impl implements IService1
type Service1Impl struct {
	ID string
}

func (s *Service1Impl) Name() string { return "service1" }

// Service1Alt is an alternative IService1 used to override defaults.
type Service1Alt struct{}

func (s *Service1Alt) Name() string { return "service1-alt" }

// Service2ImplA implements IService2
type Service2ImplA struct {
	ID string
}

func (s *Service2ImplA) Variant() string { return "A" }

// Service2ImplB implements IService2
type Service2ImplB struct {
	ID string
}

func (s *Service2ImplB) Variant() string { return "B" }

// Service3Impl implements IService3 through constructor injection.
type Service3Impl struct {
	s1 IService1
	s2 IService2
}

func NewService3(s1 IService1, s2 IService2) *Service3Impl {
	return &Service3Impl{s1: s1, s2: s2}
}

func (s *Service3Impl) Service1() IService1 { return s.s1 }
func (s *Service3Impl) Service2() IService2 { return s.s2 }

// MultiCtorService has several constructors; which one ran is recorded.
type MultiCtorService struct {
	Ctor string
	S1   IService1
	S2   IService2
}

func NewMultiCtorEmpty() *MultiCtorService {
	return &MultiCtorService{Ctor: "empty"}
}

func NewMultiCtorWithService1(s1 IService1) *MultiCtorService {
	return &MultiCtorService{Ctor: "service1", S1: s1}
}

func NewMultiCtorWithBoth(s1 IService1, s2 IService2) *MultiCtorService {
	return &MultiCtorService{Ctor: "both", S1: s1, S2: s2}
}

// FailingService can only be built by a constructor that fails.
type FailingService struct{}

func NewFailingService() (*FailingService, error) {
	return nil, ErrConstructor
}

func NewPanickingService() *FailingService {
	panic("constructor panic")
}

// TestResource is an IService1 that implements Disposable and counts its
// Close calls.
type TestResource struct {
	ID       string
	closeErr error

	mu     sync.Mutex
	closes int
}

func NewTestResource() *TestResource {
	return &TestResource{ID: uuid.NewString()}
}

func NewTestResourceWithError(err error) *TestResource {
	return &TestResource{ID: uuid.NewString(), closeErr: err}
}

func (r *TestResource) Name() string { return "resource-" + r.ID }

func (r *TestResource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closes++
	if r.closes > 1 {
		return ErrAlreadyDisposed
	}
	return r.closeErr
}

// Closes returns how many times Close was called.
func (r *TestResource) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

// IsDisposed reports whether Close was called.
func (r *TestResource) IsDisposed() bool {
	return r.Closes() > 0
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.logs))
	copy(result, l.logs)
	return result
}

// TestDatabase is a test database interface
type TestDatabase interface {
	Query(sql string) string
}

// TestDatabaseImpl implements TestDatabase and logs every query.
type TestDatabaseImpl struct {
	Logger TestLogger
	name   string
}

func NewTestDatabase(logger TestLogger) *TestDatabaseImpl {
	return &TestDatabaseImpl{Logger: logger, name: "testdb"}
}

func (d *TestDatabaseImpl) Query(sql string) string {
	d.Logger.Log(sql)
	return fmt.Sprintf("%s: %s", d.name, sql)
}

// CircularA and CircularB depend on each other through interfaces.
type CircularA interface{ A() }
type CircularB interface{ B() }

type CircularAImpl struct{ b CircularB }
type CircularBImpl struct{ a CircularA }

func NewCircularA(b CircularB) *CircularAImpl { return &CircularAImpl{b: b} }
func NewCircularB(a CircularA) *CircularBImpl { return &CircularBImpl{a: a} }

func (*CircularAImpl) A() {}
func (*CircularBImpl) B() {}

// SelfDependent depends on itself.
type SelfDependent struct{}

func NewSelfDependent(*SelfDependent) *SelfDependent { return &SelfDependent{} }

// CloserFunc is a helper type to wrap a function as a Disposable
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}
