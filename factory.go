package beans

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// BeanFactory resolves beans from a Registry.
//
// Every GetBean runs under a single mutex: definition autodetection, shell
// publishing, injection and construction of one request never interleave
// with another's. Resolution is not re-entrant; a factory method must not
// call GetBean on the factory that is constructing it.
type BeanFactory struct {
	mu sync.Mutex

	id       string
	registry Registry
	resolver *resolver
	stores   map[Scope]ScopeStore
	logger   *slog.Logger
}

// Option configures a BeanFactory.
type Option func(*factoryOptions)

type factoryOptions struct {
	logger   *slog.Logger
	loader   Loader
	stores   map[Scope]ScopeStore
	validate bool
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// WithLoader sets the loader run before each lookup. By default the
// registry is used when it implements Loader.
func WithLoader(loader Loader) Option {
	return func(o *factoryOptions) {
		o.loader = loader
	}
}

// WithScopeStore replaces the store of one scope.
func WithScopeStore(scope Scope, store ScopeStore) Option {
	return func(o *factoryOptions) {
		o.stores[scope] = store
	}
}

// WithValidation validates the registry when the factory is created.
// The registry must be a Collection.
func WithValidation() Option {
	return func(o *factoryOptions) {
		o.validate = true
	}
}

// NewBeanFactory creates a BeanFactory over reg.
func NewBeanFactory(reg Registry, opts ...Option) (*BeanFactory, error) {
	if reg == nil {
		return nil, ErrRegistryNil
	}

	o := &factoryOptions{
		stores: map[Scope]ScopeStore{
			Singleton: newSingletonStore(),
			Prototype: prototypeStore{},
			Thread:    newThreadStore(),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.loader == nil {
		if loader, ok := reg.(Loader); ok {
			o.loader = loader
		} else {
			o.loader = nopLoader{}
		}
	}

	if o.validate {
		if c, ok := reg.(Collection); ok {
			if err := c.Validate(); err != nil {
				return nil, err
			}
		}
	}

	f := &BeanFactory{
		id:       uuid.NewString(),
		registry: reg,
		stores:   o.stores,
		logger:   o.logger,
	}
	f.resolver = &resolver{
		registry: reg,
		loader:   o.loader,
		stores:   o.stores,
		logger:   o.logger.With("factory", f.id),
	}

	return f, nil
}

// LookupOption narrows a GetBean request.
type LookupOption func(*lookup)

// FromPackage requests the bean defined in pkg.
func FromPackage(pkg string) LookupOption {
	return func(l *lookup) {
		l.pkg = pkg
	}
}

// InContext requests the bean defined in context.
func InContext(context string) LookupOption {
	return func(l *lookup) {
		l.context = context
	}
}

// GetBean returns the fully wired bean named name.
//
// Without options the package and context are autodetected. The context
// selects the thread for thread-scoped beans, see WithThread.
func (f *BeanFactory) GetBean(ctx context.Context, name string, opts ...LookupOption) (any, error) {
	req := lookup{name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(&req)
		}
	}

	if err := checkIdentifiers(req.name, req.pkg, req.context); err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.resolver.resolve(newCall(ctx), req)
}

// Lookup returns the definition GetBean would resolve for the same
// arguments, without building anything.
func (f *BeanFactory) Lookup(name string, opts ...LookupOption) (*Definition, error) {
	req := lookup{name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(&req)
		}
	}

	if err := checkIdentifiers(req.name, req.pkg, req.context); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.resolver.loader.Ensure(req.name); err != nil {
		return nil, err
	}
	return findDefinition(f.registry, req)
}

// ClearScopes drops the cached beans every scope does not retain. Beans are
// rebuilt on next access. It does not wait for a resolution in progress.
func (f *BeanFactory) ClearScopes() {
	for _, store := range f.stores {
		if store != nil {
			store.Clear()
		}
	}
	f.logger.Debug("cleared bean scopes", "factory", f.id)
}

// ForceClearScopes drops every cached bean regardless of retention.
func (f *BeanFactory) ForceClearScopes() {
	for _, store := range f.stores {
		if store != nil {
			store.ForceClear()
		}
	}
	f.logger.Debug("force cleared bean scopes", "factory", f.id)
}

// ReleaseThread drops the thread-scoped beans of the thread carried by ctx.
func (f *BeanFactory) ReleaseThread(ctx context.Context) {
	releaser, ok := f.stores[Thread].(interface{ release(string) })
	if !ok {
		return
	}

	id := ThreadID(ctx)
	releaser.release(id)
	f.logger.Debug("released thread scope", "factory", f.id, "thread", id)
}

// Registry returns the registry the factory resolves from.
func (f *BeanFactory) Registry() Registry {
	return f.registry
}

// ID returns the unique identifier of the factory.
func (f *BeanFactory) ID() string {
	return f.id
}

// Get resolves a bean and asserts its type.
//
// Example:
//
//	service, err := beans.Get[*UserService](ctx, factory, "user_service")
func Get[T any](ctx context.Context, f *BeanFactory, name string, opts ...LookupOption) (T, error) {
	var zero T

	if f == nil {
		return zero, ErrFactoryNil
	}

	instance, err := f.GetBean(ctx, name, opts...)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Bean:     name,
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(instance),
		}
	}

	return typed, nil
}

// MustGet resolves a bean and panics on error.
func MustGet[T any](ctx context.Context, f *BeanFactory, name string, opts ...LookupOption) T {
	instance, err := Get[T](ctx, f, name, opts...)
	if err != nil {
		panic(err)
	}
	return instance
}

type nopLoader struct{}

func (nopLoader) Ensure(string) error { return nil }
