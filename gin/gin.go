// Package gin provides beans integration for the Gin web framework.
//
// ThreadMiddleware runs every request on its own thread scope and Handle
// resolves a controller bean by name.
//
// Example usage:
//
//	factory, _ := collection.Build()
//
//	g := gin.New()
//	g.Use(beansgin.ThreadMiddleware(factory))
//
//	g.POST("/login", beansgin.Handle("auth_controller", (*AuthController).Login))
//	g.GET("/users/:id", beansgin.Handle("user_controller", (*UserController).GetByID))
package gin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/beans"
	"github.com/junioryono/beans/beanhttp"
)

// Config holds the configuration for the thread middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// Middlewares are functions that run once the thread scope exists.
	// They can be used to resolve request beans up front, set user claims, etc.
	Middlewares []func(*beans.BeanFactory, *gin.Context) error
}

// Option configures the thread middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the thread
// scope is created. Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	beansgin.ThreadMiddleware(factory,
//	    beansgin.WithMiddleware(func(f *beans.BeanFactory, c *gin.Context) error {
//	        session, err := beans.Get[*Session](c.Request.Context(), f, "session")
//	        if err != nil {
//	            return err
//	        }
//	        session.User = c.GetHeader("X-User")
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(*beans.BeanFactory, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
	}
}

// ThreadMiddleware creates a gin.HandlerFunc that runs each request on a
// fresh thread ID. The factory is attached to the request context and can be
// retrieved using beanhttp.FromContext.
//
// The thread's beans are released when the request completes.
func ThreadMiddleware(factory *beans.BeanFactory, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		ctx, _ := beans.WithThread(c.Request.Context())
		defer factory.ReleaseThread(ctx)

		c.Request = c.Request.WithContext(beanhttp.WithFactory(ctx, factory))

		for _, mw := range cfg.Middlewares {
			if err := mw(factory, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	// If true, panics are caught and handled by PanicHandler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// FactoryErrorHandler is called when the request carries no factory.
	FactoryErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*gin.Context, error)

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

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithFactoryErrorHandler sets the error handler for a missing factory.
func WithFactoryErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.FactoryErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
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

func abort(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal Server Error",
	})
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicRecovery: false,
		PanicHandler: func(c *gin.Context, r any) {
			slog.Error("panic in handler", "panic", r)
			abort(c)
		},
		FactoryErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to get bean factory from context", "error", err)
			abort(c)
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to resolve controller", "error", err)
			abort(c)
		},
	}
}

// Handle wraps a controller method. The bean named name is resolved on the
// request's thread and must be a T.
//
// The method signature should be: func(T, *gin.Context)
func Handle[T any](name string, method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		ctx := c.Request.Context()
		factory, err := beanhttp.FromContext(ctx)
		if err != nil {
			cfg.FactoryErrorHandler(c, err)
			return
		}

		controller, err := beans.Get[T](ctx, factory, name, cfg.Lookup...)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
