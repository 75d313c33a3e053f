// Package gin provides depends integration for the Gin web framework.
//
// Every request gets its own child container, disposed when the request
// completes, and Handle resolves controllers from it.
//
// Example usage:
//
//	root, _ := depends.New(depends.WithCatalog(catalog))
//
//	g := gin.New()
//	g.Use(dependsgin.ContainerMiddleware(root))
//
//	g.POST("/login", dependsgin.Handle(AuthController.Login))
//	g.GET("/users/:id", dependsgin.Handle(UserController.GetByID))
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garagelab/depends"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// Logger receives dispose and handler failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when the request container cannot be created or
	// a middleware fails. If nil, the request is aborted with a 500 JSON body.
	ErrorHandler func(*gin.Context, error)

	// DisposeErrorHandler is called when disposing the request container fails.
	// If nil, the error is logged.
	DisposeErrorHandler func(error)

	// Middlewares run after the request container is created, in order.
	Middlewares []func(*depends.Container, *gin.Context) error
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
func WithErrorHandler(h func(*gin.Context, error)) Option {
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
// created. Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	dependsgin.ContainerMiddleware(root,
//	    dependsgin.WithMiddleware(func(c *depends.Container, ctx *gin.Context) error {
//	        return depends.RegisterInstance[RequestInfo](c, RequestInfo{Path: ctx.FullPath()})
//	    }),
//	)
func WithMiddleware(mw func(*depends.Container, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal Server Error",
	})
}

func defaultConfig(opts []Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *gin.Context, err error) {
			abortInternal(c)
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

// ContainerMiddleware creates a gin.HandlerFunc that gives each request a
// child of root. The child is attached to the request context, where
// depends.FromContext finds it, and is disposed after the handler chain
// returns.
func ContainerMiddleware(root *depends.Container, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig(opts)

	return func(c *gin.Context) {
		child, err := root.CreateChild()
		if err != nil {
			cfg.ErrorHandler(c, err)
			return
		}

		defer func() {
			if err := child.Dispose(); err != nil {
				cfg.DisposeErrorHandler(err)
			}
		}()

		c.Request = c.Request.WithContext(depends.WithContainer(c.Request.Context(), child))

		for _, mw := range cfg.Middlewares {
			if err := mw(child, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// Logger receives resolution failures and recovered panics.
	Logger *zap.Logger

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ContainerErrorHandler is called when the request has no container.
	ContainerErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*gin.Context, error)
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

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request
// container.
func WithContainerErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig(opts []HandlerOption) *HandlerConfig {
	cfg := &HandlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	logger := cfg.Logger
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = func(c *gin.Context, v any) {
			logger.Error("panic in handler", zap.Any("panic", v), zap.String("path", c.Request.URL.Path))
			abortInternal(c)
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(c *gin.Context, err error) {
			logger.Error("failed to get container from context", zap.Error(err))
			abortInternal(c)
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(c *gin.Context, err error) {
			logger.Error("failed to resolve controller", zap.Error(err))
			abortInternal(c)
		}
	}

	return cfg
}

// Handle wraps a controller method so that the controller T is resolved from
// the request container on every call.
//
//	type UserController interface {
//	    GetByID(*gin.Context)
//	}
//
//	g.GET("/users/:id", dependsgin.Handle(UserController.GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig(opts)

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(c, v)
				}
			}()
		}

		container, err := depends.FromContext(c.Request.Context())
		if err != nil {
			cfg.ContainerErrorHandler(c, err)
			return
		}

		controller, err := depends.Resolve[T](container)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
