// Package echo provides depends integration for the Echo web framework.
//
// The middleware gives every request a child container and disposes it
// when the handler returns.
//
// Example usage:
//
//	root, _ := depends.New(depends.WithCatalog(catalog))
//
//	e := echo.New()
//	e.Use(dependsecho.ContainerMiddleware(root))
//
//	e.POST("/login", dependsecho.Handle(AuthController.Login))
//	e.GET("/users/:id", dependsecho.Handle(UserController.GetByID))
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/garagelab/depends"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// Logger receives dispose and handler failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when the request container cannot be created.
	// If nil, a 500 echo.HTTPError is returned.
	ErrorHandler func(echo.Context, error) error

	// DisposeErrorHandler is called when disposing the request container fails.
	DisposeErrorHandler func(error)

	// Middlewares run after the request container is created, in order.
	Middlewares []func(*depends.Container, echo.Context) error
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
func WithErrorHandler(h func(echo.Context, error) error) Option {
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
func WithMiddleware(mw func(*depends.Container, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
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
		cfg.ErrorHandler = func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
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

// ContainerMiddleware creates an Echo middleware that gives each request a
// child of root, attached to the request context.
//
//	e := echo.New()
//	e.Use(dependsecho.ContainerMiddleware(root))
func ContainerMiddleware(root *depends.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			child, err := root.CreateChild()
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			defer func() {
				if err := child.Dispose(); err != nil {
					cfg.DisposeErrorHandler(err)
				}
			}()

			c.SetRequest(c.Request().WithContext(depends.WithContainer(c.Request().Context(), child)))

			for _, mw := range cfg.Middlewares {
				if err := mw(child, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// Logger receives resolution failures and recovered panics.
	Logger *zap.Logger

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ContainerErrorHandler is called when the request has no container.
	ContainerErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request
// container.
func WithContainerErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
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
		cfg.PanicHandler = func(c echo.Context, v any) error {
			logger.Error("panic in handler", zap.Any("panic", v), zap.String("path", c.Path()))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(c echo.Context, err error) error {
			logger.Error("failed to get container from context", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(c echo.Context, err error) error {
			logger.Error("failed to resolve controller", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}
	}

	return cfg
}

// Handle wraps a controller method so that the controller T is resolved from
// the request container on every call.
//
//	type UserController interface {
//	    GetByID(echo.Context) error
//	}
//
//	e.GET("/users/:id", dependsecho.Handle(UserController.GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig(opts)

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container, containerErr := depends.FromContext(c.Request().Context())
		if containerErr != nil {
			return cfg.ContainerErrorHandler(c, containerErr)
		}

		controller, resolveErr := depends.Resolve[T](container)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
