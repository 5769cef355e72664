package beans

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeanFactory_Graph(t *testing.T) {
	f := newTestFactory(t,
		Bean[TLogger]("logger", WithFactory("New", func(l *TLogger) (any, error) { return l, nil })),
		Bean[TService]("service", DependsOn("logger")),
		Bean[TA]("a", Inject("B", "b")),
		Bean[TB]("b", Inject("A", "a")),
		Bean[TConsumer]("consumer", DependsOn("clock")),
	)

	g, err := f.Graph()
	require.NoError(t, err)
	assert.Equal(t, 5, g.Size())

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []DefinitionID{
		{Name: "a", Package: "main", Context: "default"},
		{Name: "b", Package: "main", Context: "default"},
	}, cycles[0])

	t.Run("dot", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.WriteGraph(&buf, GraphDOT))

		out := buf.String()
		assert.Contains(t, out, `main.logger@default\n[singleton]\nfactory New`)
		assert.Contains(t, out, `[label="logger"]`)
		assert.Contains(t, out, `label="clock?"`, "unresolved edges are drawn")
	})

	t.Run("tree", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.WriteGraph(&buf, GraphTree))

		out := buf.String()
		assert.Contains(t, out, "main.service@default [singleton]")
		assert.Contains(t, out, "logger: main.logger@default [singleton] factory New")
		assert.Contains(t, out, "clock: clock (unresolved)")
	})

	t.Run("one bean", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, g.WriteBean(&buf, DefinitionID{Name: "a", Package: "main", Context: "default"}))
		assert.Contains(t, buf.String(), "A: main.a@default [singleton] (cycle)")
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, f.WriteGraph(&bytes.Buffer{}, GraphFormat("svg")))
	})

	t.Run("registry without listing", func(t *testing.T) {
		other, err := NewBeanFactory(staticRegistry{}, WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = other.Graph()
		assert.Error(t, err)
	})
}

func TestGraph_Order(t *testing.T) {
	t.Run("dependencies first", func(t *testing.T) {
		f := newTestFactory(t,
			Bean[TService]("service", DependsOn("logger")),
			Bean[TLogger]("logger"),
		)

		g, err := f.Graph()
		require.NoError(t, err)
		assert.True(t, g.Acyclic())

		order, err := g.Order()
		require.NoError(t, err)
		assert.Equal(t, []DefinitionID{
			{Name: "logger", Package: "main", Context: "default"},
			{Name: "service", Package: "main", Context: "default"},
		}, order)
	})

	t.Run("no order with a cycle", func(t *testing.T) {
		f := newTestFactory(t,
			Bean[TA]("a", Inject("B", "b")),
			Bean[TB]("b", Inject("A", "a")),
		)

		g, err := f.Graph()
		require.NoError(t, err)
		assert.False(t, g.Acyclic())

		_, err = g.Order()
		assert.ErrorContains(t, err, "circular dependency")
	})
}
