package depends

import (
	"go.uber.org/zap"

	"github.com/garagelab/depends/internal/reflection"
)

// Option configures a root container created by New.
type Option func(*options)

// options are shared by a root container and all of its descendants.
type options struct {
	catalog  TypeCatalog
	logger   *zap.Logger
	analyzer *reflection.Analyzer
}

// WithCatalog sets the type catalog used for constructor enumeration,
// default-implementation discovery and configuration type names.
// Without it the root uses an empty Catalog, which still provides implicit
// zero-value constructors for struct types.
func WithCatalog(catalog TypeCatalog) Option {
	return func(o *options) {
		o.catalog = catalog
	}
}

// WithLogger sets the logger for container lifecycle diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.catalog == nil {
		o.catalog = NewCatalog(WithCatalogLogger(o.logger))
	}
	o.analyzer = reflection.New()

	return o
}
