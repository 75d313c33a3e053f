// Package fiber provides depends integration for the Fiber web framework.
//
// The middleware creates a child container per request. It is stored in
// fiber.Ctx.Locals and attached to the UserContext, and is disposed when
// the handler chain returns.
//
// Example usage:
//
//	root, _ := depends.New(depends.WithCatalog(catalog))
//
//	app := fiber.New()
//	app.Use(dependsfiber.ContainerMiddleware(root))
//
//	app.Post("/login", dependsfiber.Handle(AuthController.Login))
//	app.Get("/users/:id", dependsfiber.Handle(UserController.GetByID))
package fiber

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/garagelab/depends"
)

// containerKey is the key used to store the container in fiber.Ctx.Locals
const containerKey = "depends_container"

// Config holds the configuration for the container middleware.
type Config struct {
	// Logger receives dispose and handler failures. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when the request container cannot be created.
	// If nil, a 500 JSON response is sent.
	ErrorHandler func(*fiber.Ctx, error) error

	// DisposeErrorHandler is called when disposing the request container fails.
	DisposeErrorHandler func(error)

	// Middlewares run after the request container is created, in order.
	Middlewares []func(*depends.Container, *fiber.Ctx) error
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
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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
func WithMiddleware(mw func(*depends.Container, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
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
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return internalError(c)
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

// ContainerMiddleware creates a Fiber middleware that gives each request a
// child of root.
//
//	app := fiber.New()
//	app.Use(dependsfiber.ContainerMiddleware(root))
func ContainerMiddleware(root *depends.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig(opts)

	return func(c *fiber.Ctx) error {
		child, err := root.CreateChild()
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		defer func() {
			if err := child.Dispose(); err != nil {
				cfg.DisposeErrorHandler(err)
			}
		}()

		c.SetUserContext(depends.WithContainer(c.UserContext(), child))
		c.Locals(containerKey, child)

		for _, mw := range cfg.Middlewares {
			if err := mw(child, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// Logger receives resolution failures and recovered panics.
	Logger *zap.Logger

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ContainerErrorHandler is called when the request has no container.
	ContainerErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request
// container.
func WithContainerErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
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
		cfg.PanicHandler = func(c *fiber.Ctx, v any) error {
			logger.Error("panic in handler", zap.Any("panic", v), zap.String("path", c.Path()))
			return internalError(c)
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(c *fiber.Ctx, err error) error {
			logger.Error("failed to get container from context", zap.Error(err))
			return internalError(c)
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(c *fiber.Ctx, err error) error {
			logger.Error("failed to resolve controller", zap.Error(err))
			return internalError(c)
		}
	}

	return cfg
}

// Handle wraps a controller method so that the controller T is resolved from
// the request container on every call.
//
//	type UserController interface {
//	    GetByID(*fiber.Ctx) error
//	}
//
//	app.Get("/users/:id", dependsfiber.Handle(UserController.GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig(opts)

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container := FromContext(c)
		if container == nil {
			// The UserContext lookup reports why no container is present.
			var containerErr error
			container, containerErr = depends.FromContext(c.UserContext())
			if containerErr != nil {
				return cfg.ContainerErrorHandler(c, containerErr)
			}
		}

		controller, resolveErr := depends.Resolve[T](container)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

// FromContext retrieves the request container from fiber.Ctx.Locals, or nil
// if ContainerMiddleware did not run.
//
//	container := dependsfiber.FromContext(c)
//	users := depends.MustResolve[*UserService](container)
func FromContext(c *fiber.Ctx) *depends.Container {
	container, _ := c.Locals(containerKey).(*depends.Container)
	return container
}
