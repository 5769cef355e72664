package beans

import (
	"context"

	"github.com/google/uuid"
)

// MainThread is the thread ID of contexts that carry none.
const MainThread = "main"

type threadKey struct{}

// WithThread returns a context carrying a fresh thread ID. Thread-scoped
// beans resolved with the returned context are private to it until
// BeanFactory.ReleaseThread is called.
//
// Example:
//
//	ctx, id := beans.WithThread(r.Context())
//	defer factory.ReleaseThread(ctx)
func WithThread(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithThreadID(ctx, id), id
}

// WithThreadID returns a context carrying the given thread ID.
func WithThreadID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, threadKey{}, id)
}

// ThreadID returns the thread ID carried by ctx, MainThread if none.
func ThreadID(ctx context.Context) string {
	if ctx == nil {
		return MainThread
	}
	if id, ok := ctx.Value(threadKey{}).(string); ok && id != "" {
		return id
	}
	return MainThread
}
