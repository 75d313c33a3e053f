package depends

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/garagelab/depends/internal/reflection"
)

// TypeCatalog supplies the facts about types that the engine consumes but
// cannot obtain from Go reflection alone.
type TypeCatalog interface {
	// Constructors returns every public constructor of t in declaration
	// order. An empty result means t cannot be constructed.
	Constructors(t reflect.Type) []ConstructorInfo

	// DefaultImplementations scans the catalog for default-implementation
	// markers. The scan happens at most once per catalog; later calls
	// return the first result.
	DefaultImplementations() ([]DefaultImplementation, error)

	// LookupType resolves a fully qualified type name as produced by TypeName.
	LookupType(name string) (reflect.Type, error)
}

// ConstructorInfo is one constructor of a type.
type ConstructorInfo struct {
	// Func is func(deps...) T or func(deps...) (T, error).
	// A nil Func constructs the zero value of T.
	Func any

	// Injector marks the designated injection point among several
	// constructors.
	Injector bool
}

// DefaultImplementation is a catalog-declared fallback binding.
type DefaultImplementation struct {
	Interface      reflect.Type
	Implementation reflect.Type
	Lifetime       Lifetime
}

// Marker attaches a declarative fact to a type being defined in a catalog.
type Marker func(*classInfo) error

type defaultMarker struct {
	iface    reflect.Type
	lifetime Lifetime
}

// classInfo is the set of facts one Define call contributes for a type.
type classInfo struct {
	typ      reflect.Type
	ctors    []ConstructorInfo
	defaults []defaultMarker
	analyzer *reflection.Analyzer
}

// Constructor declares fn as a public constructor of the type.
func Constructor(fn any) Marker {
	return constructorMarker(fn, false)
}

// Injector declares fn as a constructor and marks it as the designated
// injection point.
func Injector(fn any) Marker {
	return constructorMarker(fn, true)
}

func constructorMarker(fn any, injector bool) Marker {
	return func(ci *classInfo) error {
		if fn == nil {
			return ArgumentError{Argument: "constructor", Cause: ErrConstructorNil}
		}
		if ci.typ.Kind() == reflect.Interface {
			return ArgumentError{Argument: "type", Cause: fmt.Errorf("%w: %s", ErrNotConcrete, formatType(ci.typ))}
		}
		if _, err := ci.analyzer.Analyze(fn, ci.typ); err != nil {
			return ArgumentError{Argument: "constructor", Cause: err}
		}

		ci.ctors = append(ci.ctors, ConstructorInfo{Func: fn, Injector: injector})
		return nil
	}
}

// DefaultFor declares the type as the default implementation of iface.
// Whether the type actually implements iface is checked when the catalog
// is scanned.
func DefaultFor(iface reflect.Type, lifetime Lifetime) Marker {
	return func(ci *classInfo) error {
		if iface == nil {
			return ArgumentError{Argument: "interface", Cause: ErrTypeNil}
		}
		if !lifetime.IsValid() {
			return LifetimeError{Value: int(lifetime)}
		}

		ci.defaults = append(ci.defaults, defaultMarker{iface: iface, lifetime: lifetime})
		return nil
	}
}

// Unit is a named group of type definitions that is loaded as a whole, the
// way a plugin or module would be. A unit whose loader fails is skipped.
type Unit struct {
	name      string
	load      func(*Unit) error
	analyzer  *reflection.Analyzer
	fragments []*classInfo
}

// Name returns the unit name.
func (u *Unit) Name() string {
	return u.name
}

// Define records facts about t in this unit. It is meant to be called from
// the unit's loader.
func (u *Unit) Define(t reflect.Type, markers ...Marker) error {
	if t == nil {
		return ArgumentError{Argument: "type", Cause: ErrTypeNil}
	}

	ci := &classInfo{typ: t, analyzer: u.analyzer}
	for _, m := range markers {
		if m == nil {
			continue
		}
		if err := m(ci); err != nil {
			return fmt.Errorf("define %s: %w", formatType(t), err)
		}
	}

	u.fragments = append(u.fragments, ci)
	return nil
}

func (u *Unit) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit loader panicked: %v", r)
		}
	}()

	u.fragments = nil
	if u.load == nil {
		return nil
	}
	return u.load(u)
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogLogger sets the logger used for unit load diagnostics.
func WithCatalogLogger(logger *zap.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// Catalog is the in-memory TypeCatalog. Build one per process, define types
// and units on it, then pass it to New with WithCatalog. The catalog is
// sealed by its first default-implementation scan; later definitions fail
// with ErrInvalidState.
type Catalog struct {
	mu       sync.Mutex
	logger   *zap.Logger
	analyzer *reflection.Analyzer

	main    *Unit
	pending []*Unit
	loaded  []string
	failed  []string

	classes map[reflect.Type]*classInfo
	order   []*classInfo
	names   map[string]reflect.Type

	sealed   bool
	defaults []DefaultImplementation
	scanErr  error
}

var _ TypeCatalog = (*Catalog)(nil)

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	analyzer := reflection.New()
	c := &Catalog{
		analyzer: analyzer,
		main:     &Unit{name: "main", analyzer: analyzer},
		classes:  make(map[reflect.Type]*classInfo),
		names:    make(map[string]reflect.Type),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c
}

// Define records facts about t directly in the catalog.
func (c *Catalog) Define(t reflect.Type, markers ...Marker) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return StateError{Operation: "define type"}
	}

	if err := c.main.Define(t, markers...); err != nil {
		return err
	}

	c.index(c.main.fragments[len(c.main.fragments)-1])
	return nil
}

// AddUnit adds a unit whose loader runs the first time the catalog is
// queried. A loader error or panic is logged and the unit is skipped.
// Loaders must only use the *Unit they are given.
func (c *Catalog) AddUnit(name string, load func(*Unit) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return StateError{Operation: "add unit"}
	}

	c.pending = append(c.pending, &Unit{name: name, load: load, analyzer: c.analyzer})
	return nil
}

// Units returns the names of loaded and failed units. Pending units are
// loaded first.
func (c *Catalog) Units() (loaded, failed []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded()
	return slices.Clone(c.loaded), slices.Clone(c.failed)
}

// Constructors implements TypeCatalog. Struct and pointer-to-struct types
// without declared constructors have one implicit zero-value constructor.
func (c *Catalog) Constructors(t reflect.Type) []ConstructorInfo {
	if t == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded()

	if ci, ok := c.classes[t]; ok && len(ci.ctors) > 0 {
		return slices.Clone(ci.ctors)
	}

	if reflection.HasZeroValue(t) {
		return []ConstructorInfo{{}}
	}

	return nil
}

// DefaultImplementations implements TypeCatalog.
func (c *Catalog) DefaultImplementations() ([]DefaultImplementation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sealed {
		c.ensureLoaded()
		c.defaults, c.scanErr = scanDefaults(c.order)
		c.sealed = true

		c.logger.Debug("scanned catalog for default implementations",
			zap.Int("types", len(c.order)),
			zap.Int("defaults", len(c.defaults)),
			zap.Strings("failed_units", c.failed),
			zap.Error(c.scanErr),
		)
	}

	if c.scanErr != nil {
		return nil, c.scanErr
	}
	return slices.Clone(c.defaults), nil
}

// LookupType implements TypeCatalog.
func (c *Catalog) LookupType(name string) (reflect.Type, error) {
	if strings.TrimSpace(name) == "" {
		return nil, TypeLoadError{Name: name}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded()

	t, ok := c.names[name]
	if !ok {
		return nil, TypeLoadError{Name: name}
	}
	return t, nil
}

// ensureLoaded runs pending unit loaders. Callers hold c.mu.
func (c *Catalog) ensureLoaded() {
	pending := c.pending
	c.pending = nil

	for _, u := range pending {
		if err := u.run(); err != nil {
			c.failed = append(c.failed, u.name)
			c.logger.Warn("failed to load catalog unit",
				zap.String("unit", u.name),
				zap.Error(err),
			)
			continue
		}

		for _, ci := range u.fragments {
			c.index(ci)
		}
		c.loaded = append(c.loaded, u.name)
	}
}

// index merges a fragment into the catalog. Callers hold c.mu.
func (c *Catalog) index(fragment *classInfo) {
	merged, ok := c.classes[fragment.typ]
	if !ok {
		merged = &classInfo{typ: fragment.typ, analyzer: c.analyzer}
		c.classes[fragment.typ] = merged
		c.order = append(c.order, merged)
		c.names[TypeName(fragment.typ)] = fragment.typ
	}

	merged.ctors = append(merged.ctors, fragment.ctors...)
	merged.defaults = append(merged.defaults, fragment.defaults...)

	for _, d := range fragment.defaults {
		c.names[TypeName(d.iface)] = d.iface
	}
}

// TypeName returns the fully qualified name of t used by catalogs and
// configuration records, e.g. "*github.com/acme/app/mail.SMTPMailer".
// Unnamed types fall back to reflect's string form.
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}

	var prefix strings.Builder
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		prefix.WriteByte('*')
		t = t.Elem()
	}

	if t.PkgPath() == "" || t.Name() == "" {
		return prefix.String() + t.String()
	}
	return prefix.String() + t.PkgPath() + "." + t.Name()
}
