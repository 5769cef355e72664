// Package benchmarks compares beans resolution with other DI libraries.
//
// Run benchmarks with: go test -bench=. -benchmem ./benchmarks/
package benchmarks

import (
	"context"
	"testing"

	"github.com/junioryono/beans"
	"github.com/samber/do/v2"
	"go.uber.org/dig"
)

// =============================================================================
// Shared Test Types
// =============================================================================

type Logger struct {
	Name string
}

func NewLogger() *Logger {
	return &Logger{Name: "logger"}
}

type Config struct {
	Value string
}

func NewConfig() *Config {
	return &Config{Value: "config"}
}

type Database struct {
	Logger *Logger
	Config *Config
}

func NewDatabase(logger *Logger, config *Config) *Database {
	return &Database{Logger: logger, Config: config}
}

type Cache struct {
	Logger   *Logger
	Config   *Config
	Database *Database
}

func NewCache(logger *Logger, config *Config, db *Database) *Cache {
	return &Cache{Logger: logger, Config: config, Database: db}
}

type Dep5 struct {
	Value int
}

func NewDep5() *Dep5 {
	return &Dep5{Value: 5}
}

// UserService has five dependencies.
type UserService struct {
	Logger   *Logger
	Config   *Config
	Database *Database
	Cache    *Cache
	Dep5     *Dep5
}

func NewUserService(logger *Logger, config *Config, db *Database, cache *Cache, dep5 *Dep5) *UserService {
	return &UserService{Logger: logger, Config: config, Database: db, Cache: cache, Dep5: dep5}
}

// Ping and Pong reference each other.
type Ping struct {
	Pong *Pong
}

type Pong struct {
	Ping *Ping
}

// =============================================================================
// Registries
// =============================================================================

// userServiceBeans registers the user service graph; scope applies to the
// leaves.
func userServiceBeans(scope beans.Scope) []*beans.Definition {
	return []*beans.Definition{
		beans.Define("logger", func() any { return NewLogger() }, beans.WithScope(scope)),
		beans.Define("config", func() any { return NewConfig() }, beans.WithScope(scope)),
		beans.Bean[Database]("database", beans.DependsOn("logger", "config")),
		beans.Bean[Cache]("cache", beans.DependsOn("logger", "config", "database")),
		beans.Define("dep5", func() any { return NewDep5() }),
		beans.Bean[UserService]("user_service", beans.DependsOn("logger", "config", "database", "cache", "dep5")),
	}
}

func newBeans(b *testing.B, defs ...*beans.Definition) *beans.BeanFactory {
	b.Helper()

	c := beans.NewCollection()
	if err := c.Add(defs...); err != nil {
		b.Fatal(err)
	}
	f, err := c.Build()
	if err != nil {
		b.Fatal(err)
	}
	return f
}

func newDig() *dig.Container {
	c := dig.New()
	c.Provide(NewLogger)
	c.Provide(NewConfig)
	c.Provide(NewDatabase)
	c.Provide(NewCache)
	c.Provide(NewDep5)
	c.Provide(NewUserService)
	return c
}

func newDo() *do.RootScope {
	injector := do.New()
	do.Provide(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })
	do.Provide(injector, func(i do.Injector) (*Config, error) { return NewConfig(), nil })
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		return NewDatabase(do.MustInvoke[*Logger](i), do.MustInvoke[*Config](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Cache, error) {
		return NewCache(do.MustInvoke[*Logger](i), do.MustInvoke[*Config](i), do.MustInvoke[*Database](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Dep5, error) { return NewDep5(), nil })
	do.Provide(injector, func(i do.Injector) (*UserService, error) {
		return NewUserService(
			do.MustInvoke[*Logger](i),
			do.MustInvoke[*Config](i),
			do.MustInvoke[*Database](i),
			do.MustInvoke[*Cache](i),
			do.MustInvoke[*Dep5](i),
		), nil
	})
	return injector
}

// =============================================================================
// Build Benchmarks
// =============================================================================

func BenchmarkBuild_Beans(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		newBeans(b, userServiceBeans(beans.Singleton)...)
	}
}

func BenchmarkBuild_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		newDig()
	}
}

func BenchmarkBuild_Do(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		newDo().Shutdown()
	}
}

// =============================================================================
// Simple Resolution Benchmarks (No Dependencies)
// =============================================================================

func BenchmarkResolve_Simple_Beans(b *testing.B) {
	f := newBeans(b, beans.Define("logger", func() any { return NewLogger() }))
	ctx := context.Background()

	// Warm up
	beans.MustGet[*Logger](ctx, f, "logger")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = beans.MustGet[*Logger](ctx, f, "logger")
	}
}

func BenchmarkResolve_Simple_Dig(b *testing.B) {
	c := dig.New()
	c.Provide(NewLogger)

	// Warm up
	c.Invoke(func(l *Logger) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(l *Logger) {})
	}
}

func BenchmarkResolve_Simple_Do(b *testing.B) {
	injector := do.New()
	do.Provide(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })

	// Warm up
	do.MustInvoke[*Logger](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Logger](injector)
	}
}

// =============================================================================
// Complex Resolution Benchmarks (5 Dependencies)
// =============================================================================

// Cached beans refresh their dependencies on every request, so this measures
// the whole graph walk.
func BenchmarkResolve_Complex_Beans(b *testing.B) {
	f := newBeans(b, userServiceBeans(beans.Singleton)...)
	ctx := context.Background()

	// Warm up
	beans.MustGet[*UserService](ctx, f, "user_service")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = beans.MustGet[*UserService](ctx, f, "user_service")
	}
}

func BenchmarkResolve_Complex_Dig(b *testing.B) {
	c := newDig()

	// Warm up
	c.Invoke(func(u *UserService) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(u *UserService) {})
	}
}

func BenchmarkResolve_Complex_Do(b *testing.B) {
	injector := newDo()

	// Warm up
	do.MustInvoke[*UserService](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*UserService](injector)
	}
}

// =============================================================================
// Prototype Resolution Benchmarks (New Instance Each Time)
// =============================================================================

func BenchmarkResolve_Prototype_Beans(b *testing.B) {
	f := newBeans(b, beans.Define("logger", func() any { return NewLogger() }, beans.WithScope(beans.Prototype)))
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = beans.MustGet[*Logger](ctx, f, "logger")
	}
}

func BenchmarkResolve_Prototype_Do(b *testing.B) {
	injector := do.New()
	do.ProvideTransient(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Logger](injector)
	}
}

// Note: Dig doesn't have built-in transient support

// =============================================================================
// Concurrent Resolution Benchmarks
// =============================================================================

func BenchmarkResolve_Concurrent_Beans(b *testing.B) {
	f := newBeans(b, userServiceBeans(beans.Singleton)...)
	ctx := context.Background()

	// Warm up
	beans.MustGet[*UserService](ctx, f, "user_service")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = beans.MustGet[*UserService](ctx, f, "user_service")
		}
	})
}

func BenchmarkResolve_Concurrent_Dig(b *testing.B) {
	c := newDig()

	// Warm up
	c.Invoke(func(u *UserService) {})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Invoke(func(u *UserService) {})
		}
	})
}

func BenchmarkResolve_Concurrent_Do(b *testing.B) {
	injector := newDo()

	// Warm up
	do.MustInvoke[*UserService](injector)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = do.MustInvoke[*UserService](injector)
		}
	})
}

// =============================================================================
// Thread Scope Benchmarks
// =============================================================================

func BenchmarkThread_CreateAndResolve_Beans(b *testing.B) {
	f := newBeans(b, userServiceBeans(beans.Thread)...)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ctx, _ := beans.WithThread(context.Background())
		_ = beans.MustGet[*Database](ctx, f, "database")
		f.ReleaseThread(ctx)
	}
}

func BenchmarkThread_CreateAndResolve_Do(b *testing.B) {
	injector := newDo()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		scope := injector.Scope("request")
		_ = do.MustInvoke[*Database](scope)
		scope.Shutdown()
	}
}

// =============================================================================
// Cycle Resolution Benchmarks
// =============================================================================

func BenchmarkResolve_Cycle_Beans(b *testing.B) {
	f := newBeans(b,
		beans.Bean[Ping]("ping", beans.Inject("Pong", "pong")),
		beans.Bean[Pong]("pong", beans.Inject("Ping", "ping")),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = beans.MustGet[*Ping](ctx, f, "ping")
	}
}

// =============================================================================
// First Resolution Benchmarks (Cold Start)
// =============================================================================

func BenchmarkResolve_FirstTime_Beans(b *testing.B) {
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		f := newBeans(b, userServiceBeans(beans.Singleton)...)
		_ = beans.MustGet[*UserService](ctx, f, "user_service")
	}
}

func BenchmarkResolve_FirstTime_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		newDig().Invoke(func(u *UserService) {})
	}
}

func BenchmarkResolve_FirstTime_Do(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		injector := newDo()
		_ = do.MustInvoke[*UserService](injector)
		injector.Shutdown()
	}
}
