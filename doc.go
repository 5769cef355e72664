// Package beans provides a named-bean factory for Go applications.
//
// Beans are declared as definitions: a name, a package, a context, a scope,
// an allocator, an optional factory method and a list of named dependencies.
// A BeanFactory resolves a name to a fully wired instance.
//
// # Overview
//
// The library provides:
//   - Three scopes: Singleton, Prototype and Thread
//   - Name-based dependencies injected into struct fields
//   - Package and context autodetection with ambiguity errors
//   - Two-phase construction, so beans that reference each other resolve
//   - Lazy loaders and modules for organizing definitions
//   - Retained beans that survive ClearScopes
//   - A single resolution lock; the factory is safe for concurrent use
//
// # Basic Usage
//
// Create a collection, register definitions, build a factory, and resolve:
//
//	collection := beans.NewCollection()
//	collection.Add(
//	    beans.Bean[Logger]("logger"),
//	    beans.Bean[UserService]("user_service",
//	        beans.Inject("Logger", "logger"),
//	    ),
//	)
//
//	factory, err := collection.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	service, err := beans.Get[*UserService](ctx, factory, "user_service")
//
// # Scopes
//
//   - Singleton: one instance per factory, kept until the scopes are cleared
//   - Prototype: a new instance on every request, never cached
//   - Thread: one instance per thread ID carried on the context
//
// Go has no thread identity, so the thread travels on the context:
//
//	ctx, _ := beans.WithThread(r.Context())
//	defer factory.ReleaseThread(ctx)
//
// Contexts without a thread ID share MainThread.
//
// # Construction
//
// Every bean is first allocated as a shell and published to its scope store.
// Then its dependencies are resolved and assigned, and finally its factory
// method turns the wired shell into the bean. Because shells are published
// first, two beans may depend on each other. A bean that depends on itself
// fails with a LoadRecursionError.
//
// Cached beans are refreshed on every request: their dependencies are
// resolved again, so a prototype dependency is new each time and a dependency
// dropped by ClearScopes is rebuilt.
//
// # Packages and Contexts
//
// A request without a package autodetects it. For every package that defines
// the name, the definition in the package's configured context is taken, else
// the one in DefaultContext. Exactly one package may match:
//
//	var Storage = beans.NewModule("storage",
//	    beans.UseContext("test"),
//	    beans.AddBean(beans.Bean[FakeDB]("database", beans.ForContext("test"))),
//	)
//
// Dependencies without an explicit package prefer the referencing bean's
// package.
//
// # Error Handling
//
// All errors can be matched with errors.Is against the sentinels:
//
//	_, err := factory.GetBean(ctx, "user_service")
//	switch {
//	case errors.Is(err, beans.ErrBeanNotFound):
//	case errors.Is(err, beans.ErrAmbiguousDefinition):
//	case errors.Is(err, beans.ErrLoadRecursion):
//	}
//
// # Inspection
//
// BeanFactory.WriteGraph renders the dependency graph as DOT or as a tree,
// and Collection.Validate autodetects every edge up front. The beanhttp
// package exposes both over HTTP.
package beans
