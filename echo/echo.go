// Package echo provides beans integration for the Echo web framework.
//
// ThreadMiddleware runs every request on its own thread scope and Handle
// resolves a controller bean by name.
//
// Example usage:
//
//	factory, _ := collection.Build()
//
//	e := echo.New()
//	e.Use(beansecho.ThreadMiddleware(factory))
//
//	e.POST("/login", beansecho.Handle("auth_controller", (*AuthController).Login))
//	e.GET("/users/:id", beansecho.Handle("user_controller", (*UserController).GetByID))
package echo

import (
	"log/slog"
	"net/http"

	"github.com/junioryono/beans"
	"github.com/junioryono/beans/beanhttp"
	"github.com/labstack/echo/v4"
)

// Config holds the configuration for the thread middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a 500 HTTPError is returned to Echo's error handling.
	ErrorHandler func(echo.Context, error) error

	// Middlewares are functions that run once the thread scope exists.
	Middlewares []func(*beans.BeanFactory, echo.Context) error
}

// Option configures the thread middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the thread
// scope is created. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*beans.BeanFactory, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError() error {
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			return internalError()
		},
	}
}

// ThreadMiddleware creates an Echo middleware that runs each request on a
// fresh thread ID. The factory is attached to the request context and can be
// retrieved using beanhttp.FromContext.
//
// The thread's beans are released when the request completes.
func ThreadMiddleware(factory *beans.BeanFactory, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, _ := beans.WithThread(c.Request().Context())
			defer factory.ReleaseThread(ctx)

			c.SetRequest(c.Request().WithContext(beanhttp.WithFactory(ctx, factory)))

			for _, mw := range cfg.Middlewares {
				if err := mw(factory, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// FactoryErrorHandler is called when the request carries no factory.
	FactoryErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(echo.Context, error) error

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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithFactoryErrorHandler sets the error handler for a missing factory.
func WithFactoryErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.FactoryErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
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
		PanicHandler: func(c echo.Context, v any) error {
			slog.Error("panic in handler", "panic", v)
			return internalError()
		},
		FactoryErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to get bean factory from context", "error", err)
			return internalError()
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return internalError()
		},
	}
}

// Handle wraps a controller method. The bean named name is resolved on the
// request's thread and must be a T.
//
// The method signature should be: func(T, echo.Context) error
func Handle[T any](name string, method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		ctx := c.Request().Context()
		factory, factoryErr := beanhttp.FromContext(ctx)
		if factoryErr != nil {
			return cfg.FactoryErrorHandler(c, factoryErr)
		}

		controller, resolveErr := beans.Get[T](ctx, factory, name, cfg.Lookup...)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
