package beans

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry is the bean-definition lookup the resolver consumes.
type Registry interface {
	// FindExact returns the single definition matching name, package and
	// context. An empty package matches every package.
	FindExact(name, pkg, context string) (*Definition, error)

	// FilterByName returns every definition named name.
	FilterByName(name string) []*Definition

	// FilterWithDefaultFallback returns the definitions matching name,
	// package and context, or those in DefaultContext when none match.
	FilterWithDefaultFallback(name, pkg, context string) []*Definition

	// PackageContext returns the configured context of a package,
	// DefaultContext when none was configured.
	PackageContext(pkg string) string
}

// Collection represents a set of bean definitions that define the beans
// available to a BeanFactory.
//
// Collection follows a builder pattern: definitions are added with their
// scopes and dependencies, then the collection is built into a BeanFactory.
// Lazy loaders may add definitions later, while the factory resolves.
//
// Example:
//
//	collection := beans.NewCollection()
//	collection.Add(
//	    beans.Bean[Logger]("logger"),
//	    beans.Bean[Service]("service", beans.DependsOn("logger")),
//	)
//
//	factory, err := collection.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
type Collection interface {
	Registry
	Loader

	// Build creates a BeanFactory over this collection.
	Build(opts ...Option) (*BeanFactory, error)

	// Add registers definitions. A definition's identity (name, package,
	// context) must be unique.
	Add(defs ...*Definition) error

	// AddModules applies one or more modules to the collection.
	AddModules(modules ...ModuleOption) error

	// AddLoader registers a loader that is run the first time a bean named
	// name is requested.
	AddLoader(name string, load LoaderFunc) error

	// SetPackageContext configures the context autodetection prefers for pkg.
	SetPackageContext(pkg, context string) error

	// Contains checks if any definition is named name.
	Contains(name string) bool

	// ToSlice returns a copy of all definitions in registration order.
	ToSlice() []*Definition

	// Count returns the number of registered definitions.
	Count() int

	// Validate autodetects every dependency edge and reports the problems
	// a resolution would hit.
	Validate() error
}

type collection struct {
	mu sync.RWMutex

	// definitions in registration order
	definitions []*Definition

	// ids guards against duplicate identities
	ids map[DefinitionID]*Definition

	// byName indexes definitions for autodetection
	byName map[string][]*Definition

	// packageContexts holds the configured context per package
	packageContexts map[string]string

	loader *lazyLoader
}

// NewCollection creates a new empty Collection.
func NewCollection() Collection {
	c := &collection{
		ids:             make(map[DefinitionID]*Definition),
		byName:          make(map[string][]*Definition),
		packageContexts: make(map[string]string),
	}
	c.loader = newLazyLoader(c)
	return c
}

// Build creates a BeanFactory over the collection.
func (c *collection) Build(opts ...Option) (*BeanFactory, error) {
	return NewBeanFactory(c, opts...)
}

// Add registers definitions.
func (c *collection) Add(defs ...*Definition) error {
	for _, def := range defs {
		if err := c.add(def); err != nil {
			return err
		}
	}
	return nil
}

func (c *collection) add(def *Definition) error {
	if def == nil {
		return ErrDefinitionNil
	}

	if err := def.validate(); err != nil {
		return RegistrationError{Definition: def.ID(), Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := def.ID()
	if _, exists := c.ids[id]; exists {
		return RegistrationError{Definition: id, Cause: ErrDuplicateDefinition}
	}

	c.ids[id] = def
	c.byName[def.Name] = append(c.byName[def.Name], def)
	c.definitions = append(c.definitions, def)

	return nil
}

// AddModules applies one or more modules to the collection.
func (c *collection) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(c); err != nil {
			return err
		}
	}

	return nil
}

// AddLoader registers a lazy loader for name.
func (c *collection) AddLoader(name string, load LoaderFunc) error {
	if !isIdentifier(name) {
		return InvalidArgumentError{Argument: "name", Value: name}
	}
	if load == nil {
		return ErrLoaderNil
	}

	c.loader.add(name, load)
	return nil
}

// Ensure runs the pending loaders for name.
func (c *collection) Ensure(name string) error {
	return c.loader.Ensure(name)
}

// SetPackageContext configures the context autodetection prefers for pkg.
func (c *collection) SetPackageContext(pkg, context string) error {
	if !isIdentifier(pkg) {
		return InvalidArgumentError{Argument: "package", Value: pkg}
	}
	if !isIdentifier(context) {
		return InvalidArgumentError{Argument: "context", Value: context}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.packageContexts[pkg] = context
	return nil
}

// PackageContext returns the configured context of pkg.
func (c *collection) PackageContext(pkg string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if context, ok := c.packageContexts[pkg]; ok {
		return context
	}
	return DefaultContext
}

// FindExact returns the definition matching name, package and context.
func (c *collection) FindExact(name, pkg, context string) (*Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []*Definition
	for _, def := range c.byName[name] {
		if (pkg == "" || def.Package == pkg) && def.Context == context {
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

// FilterByName returns every definition named name.
func (c *collection) FilterByName(name string) []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]*Definition(nil), c.byName[name]...)
}

// FilterWithDefaultFallback returns the definitions matching name, package
// and context, falling back to DefaultContext.
func (c *collection) FilterWithDefaultFallback(name, pkg, context string) []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches, fallback []*Definition
	for _, def := range c.byName[name] {
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

// Contains checks if any definition is named name.
func (c *collection) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byName[name]) > 0
}

// ToSlice returns a copy of all definitions in registration order.
func (c *collection) ToSlice() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]*Definition(nil), c.definitions...)
}

// Count returns the number of registered definitions.
func (c *collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.definitions)
}

// Validate autodetects every dependency edge of every definition.
// Cycles between distinct beans are legal and not reported.
func (c *collection) Validate() error {
	var errs []error

	for _, def := range c.ToSlice() {
		if !def.Scope.IsValid() {
			errs = append(errs, UnsupportedScopeError{Definition: def.ID(), Scope: def.Scope})
		}

		for _, ref := range def.Dependencies {
			if err := c.Ensure(ref.Bean); err != nil {
				errs = append(errs, err)
				continue
			}

			target, err := autodetectRef(c, def, ref)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s field %q: %w", def.ID(), ref.Field, err))
				continue
			}

			if target == def {
				errs = append(errs, LoadRecursionError{Definition: def.ID(), Path: []string{def.Name}})
			}
		}
	}

	return errors.Join(errs...)
}

// definitionIDs returns sorted identities for diagnostics.
func definitionIDs(defs []*Definition) []DefinitionID {
	ids := make([]DefinitionID, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID())
	}

	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Package != ids[j].Package {
			return ids[i].Package < ids[j].Package
		}
		return ids[i].Context < ids[j].Context
	})

	return ids
}
