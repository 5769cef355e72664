package beans

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBean_Defaults(t *testing.T) {
	def := Bean[TService]("service", Inject("Logger", "logger"))

	assert.Equal(t, "service", def.Name)
	assert.Equal(t, DefaultPackage, def.Package)
	assert.Equal(t, DefaultContext, def.Context)
	assert.Equal(t, Singleton, def.Scope)
	assert.Equal(t, reflect.TypeFor[*TService](), def.Class)
	assert.False(t, def.IsFactory())
	assert.False(t, def.Retain)

	require.Len(t, def.Dependencies, 1)
	assert.Equal(t, "Logger", def.Dependencies[0].Field)
	assert.Equal(t, "logger", def.Dependencies[0].Bean)
	assert.Nil(t, def.Dependencies[0].Resolved())

	a, b := def.Allocate(), def.Allocate()
	assert.IsType(t, &TService{}, a)
	assert.NotSame(t, a, b)
}

func TestDefine_LearnsClass(t *testing.T) {
	def := Define("clock", func() any { return &TClock{} },
		InPackage("time"),
		ForContext("test"),
		WithScope(Prototype),
		Retained(),
	)

	assert.Equal(t, reflect.TypeFor[*TClock](), def.Class)
	assert.Equal(t, DefinitionID{Name: "clock", Package: "time", Context: "test"}, def.ID())
	assert.Equal(t, "clock (package: time, context: test)", def.String())
	assert.Equal(t, Prototype, def.Scope)
	assert.True(t, def.Retain)
}

func TestDependencyOptions(t *testing.T) {
	def := Bean[TConsumer]("consumer",
		DependsOn("clock", "logger"),
		Inject("Other", "logger", RefPackage("logging")),
	)

	require.Len(t, def.Dependencies, 3)
	assert.Equal(t, "clock", def.Dependencies[0].Field)
	assert.Equal(t, "clock", def.Dependencies[0].Bean)
	assert.Equal(t, "logging", def.Dependencies[2].Package)
}

func TestWithFactory(t *testing.T) {
	t.Run("typed", func(t *testing.T) {
		def := Bean[TLogger]("logger", WithFactory("New", func(l *TLogger) (any, error) {
			l.Prefix = "built"
			return l, nil
		}))

		assert.True(t, def.IsFactory())
		assert.Equal(t, "New", def.FactoryMethod)

		value, err := def.Factory(&TLogger{})
		require.NoError(t, err)
		assert.Equal(t, "built", value.(*TLogger).Prefix)

		_, err = def.Factory(&TClock{})
		assert.ErrorContains(t, err, "shell is *beans.TClock")
	})

	t.Run("untyped gets a default method name", func(t *testing.T) {
		def := Bean[TLogger]("logger", WithFactoryFunc("", func(shell any) (any, error) {
			return shell, nil
		}))
		require.NoError(t, def.validate())
		assert.Equal(t, "factory", def.FactoryMethod)
	})
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     *Definition
		wantErr error
	}{
		{"valid", Bean[TService]("service", Inject("Logger", "logger")), nil},
		{"no allocator", Define("x", nil), ErrAllocatorNil},
		{"nil allocation", Define("x", func() any { return nil }), ErrAllocationNil},
		{"duplicate field", Bean[TService]("service", Inject("Logger", "a"), Inject("Logger", "b")), ErrDuplicateField},
		{"bad name", Bean[TService]("my-service"), ErrInvalidArgument},
		{"leading digit", Bean[TService]("1service"), ErrInvalidArgument},
		{"empty name", Bean[TService](""), ErrInvalidArgument},
		{"bad package", Bean[TService]("service", InPackage("a.b")), ErrInvalidArgument},
		{"empty package", Bean[TService]("service", InPackage("")), ErrInvalidArgument},
		{"empty context", Bean[TService]("service", ForContext("")), ErrInvalidArgument},
		{"bad field", Bean[TService]("service", Inject("the logger", "logger")), ErrInvalidArgument},
		{"bad ref", Bean[TService]("service", Inject("Logger", "log-ger")), ErrInvalidArgument},
		{"bad ref package", Bean[TService]("service", Inject("Logger", "logger", RefPackage("x y"))), ErrInvalidArgument},
		{"underscore names", Bean[TService]("_svc_1", InPackage("pkg_2"), ForContext("ctx_3")), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("duplicate field names the field", func(t *testing.T) {
		def := Bean[TService]("service", Inject("Logger", "a"), Inject("Logger", "b"))
		assert.ErrorContains(t, def.validate(), `field injected twice: "Logger"`)
	})

	t.Run("scope is not checked at registration", func(t *testing.T) {
		assert.NoError(t, Bean[TService]("service", WithScope(Scope(9))).validate())
	})
}
