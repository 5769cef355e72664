package beans

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// TLogger is a leaf bean.
type TLogger struct {
	Prefix string
}

// TService depends on a logger.
type TService struct {
	Logger *TLogger
}

// TClock is usually registered as a prototype.
type TClock struct {
	Tick int64
}

// TNode references another TNode bean; used for self edges.
type TNode struct {
	Next *TNode
}

// TA and TB reference each other.
type TA struct {
	B *TB

	built bool
}

type TB struct {
	A *TA

	built bool
}

// TConsumer holds a prototype and a singleton dependency.
type TConsumer struct {
	Clock  *TClock
	Logger *TLogger
}

// TInjectable assigns its dependencies without reflection.
type TInjectable struct {
	values map[string]any
}

func (i *TInjectable) SetDependency(field string, value any) error {
	if i.values == nil {
		i.values = make(map[string]any)
	}
	i.values[field] = value
	return nil
}

// TRequest is usually thread scoped; TAudit, TCache and THandler share it.
type TRequest struct {
	ID int64
}

type TAudit struct {
	Request *TRequest
}

type TCache struct {
	Request *TRequest
}

type THandler struct {
	Request *TRequest
	Audit   *TAudit
	Cache   *TCache
}

// TRoot -> TBranch -> TLeaf closes a cycle back to TRoot, directly or
// through a TProto.
type TRoot struct {
	Tag    string
	Branch *TBranch
}

type TBranch struct {
	Leaf *TLeaf
}

type TLeaf struct {
	Root  *TRoot
	Proto *TProto
}

type TProto struct {
	Root *TRoot
}

var tickSeq atomic.Int64

// ============================================================================
// Helpers
// ============================================================================

// newTestCollection registers defs and fails the test on error.
func newTestCollection(t *testing.T, defs ...*Definition) Collection {
	t.Helper()

	c := NewCollection()
	require.NoError(t, c.Add(defs...))
	return c
}

// newTestFactory builds a factory over defs.
func newTestFactory(t *testing.T, defs ...*Definition) *BeanFactory {
	t.Helper()

	f, err := newTestCollection(t, defs...).Build(WithLogger(discardLogger()))
	require.NoError(t, err)
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// tickingClock is a prototype clock whose factory stamps a sequence number.
func tickingClock() *Definition {
	return Bean[TClock]("clock",
		WithScope(Prototype),
		WithFactory("Tick", func(c *TClock) (any, error) {
			c.Tick = tickSeq.Add(1)
			return c, nil
		}),
	)
}

// mustGet resolves name or fails the test.
func mustGet[T any](t *testing.T, ctx context.Context, f *BeanFactory, name string, opts ...LookupOption) T {
	t.Helper()

	bean, err := Get[T](ctx, f, name, opts...)
	require.NoError(t, err)
	return bean
}

// staticRegistry is a Registry over a fixed slice, without loaders.
type staticRegistry struct {
	defs []*Definition
}

func (r staticRegistry) FindExact(name, pkg, context string) (*Definition, error) {
	var matches []*Definition
	for _, def := range r.defs {
		if def.Name == name && (pkg == "" || def.Package == pkg) && def.Context == context {
			matches = append(matches, def)
		}
	}
	switch len(matches) {
	case 0:
		return nil, BeanNotFoundError{Name: name, Package: pkg, Context: context}
	case 1:
		return matches[0], nil
	default:
		return nil, AmbiguousDefinitionError{Name: name, Package: pkg, Candidates: definitionIDs(matches)}
	}
}

func (r staticRegistry) FilterByName(name string) []*Definition {
	var matches []*Definition
	for _, def := range r.defs {
		if def.Name == name {
			matches = append(matches, def)
		}
	}
	return matches
}

func (r staticRegistry) FilterWithDefaultFallback(name, pkg, context string) []*Definition {
	var matches, fallback []*Definition
	for _, def := range r.FilterByName(name) {
		if def.Package != pkg {
			continue
		}
		switch def.Context {
		case context:
			matches = append(matches, def)
		case DefaultContext:
			fallback = append(fallback, def)
		}
	}
	if len(matches) > 0 {
		return matches
	}
	return fallback
}

func (r staticRegistry) PackageContext(string) string {
	return DefaultContext
}

var errBoom = errors.New("boom")
