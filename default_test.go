package beans_test

import (
	"context"
	"testing"

	"github.com/junioryono/beans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFactory(t *testing.T) {
	original := beans.Default()
	t.Cleanup(func() {
		beans.SetDefault(original)
	})

	t.Run("nil default", func(t *testing.T) {
		beans.SetDefault(nil)
		assert.Nil(t, beans.Default())

		_, err := beans.GetBean(context.Background(), "logger")
		assert.ErrorIs(t, err, beans.ErrFactoryNil)
	})

	t.Run("resolves from the default", func(t *testing.T) {
		collection := beans.NewCollection()
		require.NoError(t, collection.Add(beans.Bean[beans.TLogger]("logger")))

		factory, err := collection.Build()
		require.NoError(t, err)

		beans.SetDefault(factory)
		assert.Same(t, factory, beans.Default())

		first, err := beans.GetBean(context.Background(), "logger")
		require.NoError(t, err)
		second, err := factory.GetBean(context.Background(), "logger")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})
}
