// Package beanhttp provides beans integration for net/http and the Chi router.
//
// ThreadMiddleware gives every request its own thread scope, so thread-scoped
// beans live exactly as long as the request. Handle resolves a controller
// bean by name and calls one of its methods.
//
// Example usage:
//
//	factory, _ := collection.Build()
//
//	r := chi.NewRouter()
//	r.Use(beanhttp.ThreadMiddleware(factory))
//
//	r.Get("/users/{id}", beanhttp.Handle("user_controller", (*UserController).GetByID))
package beanhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/junioryono/beans"
)

// ErrNoFactory is returned when a request carries no BeanFactory.
var ErrNoFactory = errors.New("no bean factory in request context")

type factoryKey struct{}

// WithFactory attaches f to ctx.
func WithFactory(ctx context.Context, f *beans.BeanFactory) context.Context {
	return context.WithValue(ctx, factoryKey{}, f)
}

// FromContext returns the BeanFactory attached by ThreadMiddleware.
func FromContext(ctx context.Context) (*beans.BeanFactory, error) {
	f, ok := ctx.Value(factoryKey{}).(*beans.BeanFactory)
	if !ok || f == nil {
		return nil, ErrNoFactory
	}
	return f, nil
}

// Config holds the configuration for the thread middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Middlewares are functions that run once the thread scope exists.
	// They can be used to resolve request beans up front, set user data, etc.
	Middlewares []func(*beans.BeanFactory, *http.Request) error
}

// Option configures the thread middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the thread
// scope is created. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*beans.BeanFactory, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// ThreadMiddleware creates a middleware that runs every request on a fresh
// thread ID and attaches the factory to the request context. The thread's
// beans are released when the request completes.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(beanhttp.ThreadMiddleware(factory))
func ThreadMiddleware(factory *beans.BeanFactory, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := beans.WithThread(r.Context())
			defer factory.ReleaseThread(ctx)

			r = r.WithContext(WithFactory(ctx, factory))

			for _, mw := range cfg.Middlewares {
				if err := mw(factory, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// FactoryErrorHandler is called when the request carries no factory.
	FactoryErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when the bean cannot be resolved.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Lookup narrows the bean lookup.
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
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithFactoryErrorHandler sets the error handler for a missing factory.
func WithFactoryErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.FactoryErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for bean resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
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
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			slog.Error("panic in handler", "panic", v)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		FactoryErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to get bean factory from context", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to resolve controller", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Handle wraps a controller method. The bean named name is resolved on the
// request's thread and must be a T.
//
// Example:
//
//	r.Get("/users/{id}", beanhttp.Handle("user_controller", (*UserController).GetByID))
func Handle[T any](name string, method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		factory, err := FromContext(r.Context())
		if err != nil {
			cfg.FactoryErrorHandler(w, r, err)
			return
		}

		controller, err := beans.Get[T](r.Context(), factory, name, cfg.Lookup...)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
