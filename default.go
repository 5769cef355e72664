package beans

import "context"

var (
	// defaultFactory holds the factory used by the package-level functions.
	defaultFactory *BeanFactory
)

// SetDefault sets the BeanFactory used by the package-level GetBean.
// This is similar to slog.SetDefault. Pass nil to remove it.
func SetDefault(f *BeanFactory) {
	defaultFactory = f
}

// Default returns the current default BeanFactory, nil if none was set.
func Default() *BeanFactory {
	return defaultFactory
}

// GetBean resolves name from the default factory.
func GetBean(ctx context.Context, name string, opts ...LookupOption) (any, error) {
	if defaultFactory == nil {
		return nil, ErrFactoryNil
	}
	return defaultFactory.GetBean(ctx, name, opts...)
}
