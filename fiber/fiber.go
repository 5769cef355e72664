// Package fiber provides beans integration for the Fiber web framework.
//
// ThreadMiddleware runs every request on its own thread scope and Handle
// resolves a controller bean by name. The thread context is the request's
// UserContext.
//
// Example usage:
//
//	factory, _ := collection.Build()
//
//	app := fiber.New()
//	app.Use(beansfiber.ThreadMiddleware(factory))
//
//	app.Post("/login", beansfiber.Handle("auth_controller", (*AuthController).Login))
//	app.Get("/users/:id", beansfiber.Handle("user_controller", (*UserController).GetByID))
package fiber

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/beans"
	"github.com/junioryono/beans/beanhttp"
)

// factoryKey is the key used to store the factory in fiber.Ctx.Locals
const factoryKey = "beans_factory"

// Config holds the configuration for the thread middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a 500 JSON response is written.
	ErrorHandler func(*fiber.Ctx, error) error

	// Middlewares are functions that run once the thread scope exists.
	Middlewares []func(*beans.BeanFactory, *fiber.Ctx) error
}

// Option configures the thread middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the thread
// scope is created. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*beans.BeanFactory, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return internalError(c)
		},
	}
}

// ThreadMiddleware creates a Fiber middleware that runs each request on a
// fresh thread ID. The factory is stored in fiber.Ctx.Locals and attached to
// the UserContext.
//
// The thread's beans are released when the request completes.
func ThreadMiddleware(factory *beans.BeanFactory, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		ctx, _ := beans.WithThread(c.UserContext())
		defer factory.ReleaseThread(ctx)

		c.SetUserContext(beanhttp.WithFactory(ctx, factory))
		c.Locals(factoryKey, factory)

		for _, mw := range cfg.Middlewares {
			if err := mw(factory, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// FactoryErrorHandler is called when the request carries no factory.
	FactoryErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*fiber.Ctx, error) error

	// Lookup narrows the controller lookup.
	Lookup []beans.LookupOption
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

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

// WithFactoryErrorHandler sets the error handler for a missing factory.
func WithFactoryErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.FactoryErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

// WithLookup narrows the controller lookup, for example to a package.
func WithLookup(opts ...beans.LookupOption) HandlerOption {
	return func(c *HandlerConfig) {
		c.Lookup = append(c.Lookup, opts...)
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicRecovery: false,
		PanicHandler: func(c *fiber.Ctx, v any) error {
			slog.Error("panic in handler", "panic", v)
			return internalError(c)
		},
		FactoryErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to get bean factory from context", "error", err)
			return internalError(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return internalError(c)
		},
	}
}

// Handle wraps a controller method. The bean named name is resolved on the
// request's thread and must be a T.
//
// The method signature should be: func(T, *fiber.Ctx) error
func Handle[T any](name string, method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		factory := FromContext(c)
		if factory == nil {
			return cfg.FactoryErrorHandler(c, beanhttp.ErrNoFactory)
		}

		controller, resolveErr := beans.Get[T](c.UserContext(), factory, name, cfg.Lookup...)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

// FromContext retrieves the factory from fiber.Ctx.Locals, or nil outside
// ThreadMiddleware.
//
// Example:
//
//	factory := beansfiber.FromContext(c)
//	users := beans.MustGet[*UserService](c.UserContext(), factory, "user_service")
func FromContext(c *fiber.Ctx) *beans.BeanFactory {
	factory, _ := c.Locals(factoryKey).(*beans.BeanFactory)
	return factory
}
