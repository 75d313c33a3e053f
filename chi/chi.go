// Package chi provides depends integration for the Chi router.
//
// The middleware creates a child container for every request and disposes it
// when the request completes. Handlers resolve their controllers from it.
//
// Example usage:
//
//	root, _ := depends.New(depends.WithCatalog(catalog))
//
//	r := dependschi.NewRouter(root)
//	r.Post("/login", dependschi.Handle(AuthController.Login))
//	r.Get("/users/{id}", dependschi.Handle(UserController.GetByID))
package chi

import (
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/garagelab/depends"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// Logger receives dispose and handler failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when the request container cannot be created.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// DisposeErrorHandler is called when disposing the request container fails.
	// If nil, the error is logged.
	DisposeErrorHandler func(error)

	// Middlewares run after the request container is created, in order.
	// They typically register request data such as the current user.
	Middlewares []func(*depends.Container, *http.Request) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithErrorHandler sets the error handler for container creation failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithDisposeErrorHandler sets the error handler for dispose failures.
func WithDisposeErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.DisposeErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the request container is
// created.
func WithMiddleware(mw func(*depends.Container, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func newConfig(opts []Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.DisposeErrorHandler == nil {
		logger := cfg.Logger
		cfg.DisposeErrorHandler = func(err error) {
			logger.Error("failed to dispose request container", zap.Error(err))
		}
	}

	return cfg
}

// ContainerMiddleware creates a child of root for each request, attaches it
// to the request context and disposes it when the request completes. Use
// depends.FromContext to retrieve it.
//
//	r := chi.NewRouter()
//	r.Use(dependschi.ContainerMiddleware(root))
func ContainerMiddleware(root *depends.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			child, err := root.CreateChild()
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			defer func() {
				if err := child.Dispose(); err != nil {
					cfg.DisposeErrorHandler(err)
				}
			}()

			r = r.WithContext(depends.WithContainer(r.Context(), child))

			for _, mw := range cfg.Middlewares {
				if err := mw(child, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter returns a chi router with ContainerMiddleware installed.
func NewRouter(root *depends.Container, opts ...Option) *chirouter.Mux {
	r := chirouter.NewRouter()
	r.Use(ContainerMiddleware(root, opts...))
	return r
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// Logger receives resolution failures and recovered panics.
	Logger *zap.Logger

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContainerErrorHandler is called when the request has no container.
	ContainerErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithHandlerLogger sets the logger used by the default handlers.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		c.Logger = logger
	}
}

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request
// container.
func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func newHandlerConfig(opts []HandlerOption) *HandlerConfig {
	cfg := &HandlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	logger := cfg.Logger
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
			logger.Error("panic in handler", zap.Any("panic", v), zap.String("path", r.URL.Path))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to get container from context", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to resolve controller", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	return cfg
}

// Handle wraps a controller method so that the controller T is resolved from
// the request container on every call.
//
//	type UserController interface {
//	    GetByID(http.ResponseWriter, *http.Request)
//	}
//
//	r.Get("/users/{id}", dependschi.Handle(UserController.GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := newHandlerConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		container, err := depends.FromContext(r.Context())
		if err != nil {
			cfg.ContainerErrorHandler(w, r, err)
			return
		}

		controller, err := depends.Resolve[T](container)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
