package beans

import (
	"fmt"
	"reflect"
	"regexp"
)

const (
	// DefaultContext is the context of definitions registered without one,
	// and the fallback when a package's configured context has no match.
	DefaultContext = "default"

	// DefaultPackage is the package of definitions registered outside a module.
	DefaultPackage = "main"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// isIdentifier reports whether s can name a bean, package, context or field.
func isIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// DefinitionID identifies a definition within a registry.
type DefinitionID struct {
	Name    string
	Package string
	Context string
}

func (id DefinitionID) String() string {
	return fmt.Sprintf("%s (package: %s, context: %s)", id.Name, id.Package, id.Context)
}

// FactoryFunc turns a wired shell into the final bean.
// It is called once per shell, after every declared dependency was assigned.
type FactoryFunc func(shell any) (any, error)

// Definition describes how to build a bean. It is immutable once added to
// a Collection, except for the autodetection memo kept on its dependencies.
type Definition struct {
	Name    string
	Package string
	Context string

	// Class is the concrete class identity. Scope stores hold at most one
	// bean per class.
	Class reflect.Type

	Scope Scope

	// Allocate returns a bare instance. It must not have side effects.
	Allocate func() any

	// Factory is optional. Without it the wired allocation is the bean.
	Factory       FactoryFunc
	FactoryMethod string

	// Dependencies in declaration order.
	Dependencies []*DependencyRef

	// Retain keeps the cached bean across ClearScopes. ForceClearScopes
	// still drops it.
	Retain bool
}

// ID returns the identity of the definition.
func (d *Definition) ID() DefinitionID {
	return DefinitionID{Name: d.Name, Package: d.Package, Context: d.Context}
}

// IsFactory reports whether the bean is constructed through a factory method.
func (d *Definition) IsFactory() bool {
	return d.Factory != nil
}

func (d *Definition) String() string {
	return d.ID().String()
}

// DependencyRef is an edge from a definition to another bean.
type DependencyRef struct {
	// Field receives the resolved bean.
	Field string

	// Bean is the name of the referenced bean.
	Bean string

	// Package optionally pins the referenced bean's package.
	Package string

	resolved *Definition
}

// Resolved returns the autodetected definition, or nil before the first
// resolution that reached this edge.
func (r *DependencyRef) Resolved() *Definition {
	return r.resolved
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// RefOption configures a DependencyRef.
type RefOption func(*DependencyRef)

// Define creates a definition around an allocator. The allocator is called
// once to learn the class.
//
// Example:
//
//	beans.Define("clock", func() any { return &Clock{} }, beans.WithScope(beans.Prototype))
func Define(name string, allocate func() any, opts ...DefinitionOption) *Definition {
	d := &Definition{
		Name:     name,
		Package:  DefaultPackage,
		Context:  DefaultContext,
		Scope:    Singleton,
		Allocate: allocate,
	}

	if allocate != nil {
		if sample := allocate(); sample != nil {
			d.Class = reflect.TypeOf(sample)
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d
}

// Bean creates a definition whose shells are fresh *T values.
//
// Example:
//
//	beans.Bean[UserService]("user_service",
//	    beans.Inject("Repo", "user_repository"),
//	    beans.Inject("Logger", "logger"),
//	)
func Bean[T any](name string, opts ...DefinitionOption) *Definition {
	d := &Definition{
		Name:     name,
		Package:  DefaultPackage,
		Context:  DefaultContext,
		Scope:    Singleton,
		Class:    reflect.TypeFor[*T](),
		Allocate: func() any { return new(T) },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d
}

// InPackage sets the package of the definition.
func InPackage(pkg string) DefinitionOption {
	return func(d *Definition) {
		d.Package = pkg
	}
}

// ForContext sets the context of the definition.
func ForContext(context string) DefinitionOption {
	return func(d *Definition) {
		d.Context = context
	}
}

// WithScope sets the scope of the definition.
func WithScope(scope Scope) DefinitionOption {
	return func(d *Definition) {
		d.Scope = scope
	}
}

// Retained keeps the bean cached across ClearScopes.
func Retained() DefinitionOption {
	return func(d *Definition) {
		d.Retain = true
	}
}

// Inject declares that field receives the bean named bean.
func Inject(field, bean string, opts ...RefOption) DefinitionOption {
	return func(d *Definition) {
		ref := &DependencyRef{Field: field, Bean: bean}
		for _, opt := range opts {
			if opt != nil {
				opt(ref)
			}
		}
		d.Dependencies = append(d.Dependencies, ref)
	}
}

// DependsOn declares dependencies whose field names equal the bean names.
func DependsOn(beanNames ...string) DefinitionOption {
	return func(d *Definition) {
		for _, name := range beanNames {
			d.Dependencies = append(d.Dependencies, &DependencyRef{Field: name, Bean: name})
		}
	}
}

// RefPackage pins the package of the referenced bean.
func RefPackage(pkg string) RefOption {
	return func(r *DependencyRef) {
		r.Package = pkg
	}
}

// WithFactory sets a typed factory method. The shell handed to fn is the
// *T allocated for the bean, with every dependency assigned.
//
// Example:
//
//	beans.Bean[Pool]("pool",
//	    beans.Inject("Config", "config"),
//	    beans.WithFactory("Open", func(p *Pool) (any, error) { return p.Open() }),
//	)
func WithFactory[T any](method string, fn func(*T) (any, error)) DefinitionOption {
	return func(d *Definition) {
		d.FactoryMethod = method
		d.Factory = func(shell any) (any, error) {
			typed, ok := shell.(*T)
			if !ok {
				return nil, fmt.Errorf("shell is %T, want %s", shell, reflect.TypeFor[*T]())
			}
			return fn(typed)
		}
	}
}

// WithFactoryFunc sets an untyped factory method.
func WithFactoryFunc(method string, fn FactoryFunc) DefinitionOption {
	return func(d *Definition) {
		d.FactoryMethod = method
		d.Factory = fn
	}
}

// checkIdentifiers validates a name and optional package and context.
func checkIdentifiers(name, pkg, context string) error {
	if !isIdentifier(name) {
		return InvalidArgumentError{Argument: "name", Value: name}
	}
	if pkg != "" && !isIdentifier(pkg) {
		return InvalidArgumentError{Argument: "package", Value: pkg}
	}
	if context != "" && !isIdentifier(context) {
		return InvalidArgumentError{Argument: "context", Value: context}
	}
	return nil
}

// validate checks the definition before registration.
func (d *Definition) validate() error {
	if d.Allocate == nil {
		return ErrAllocatorNil
	}
	if d.Class == nil {
		return ErrAllocationNil
	}

	if err := checkIdentifiers(d.Name, d.Package, d.Context); err != nil {
		return err
	}
	if d.Package == "" {
		return InvalidArgumentError{Argument: "package", Value: d.Package}
	}
	if d.Context == "" {
		return InvalidArgumentError{Argument: "context", Value: d.Context}
	}

	if d.Factory != nil && d.FactoryMethod == "" {
		d.FactoryMethod = "factory"
	}

	seen := make(map[string]bool, len(d.Dependencies))
	for _, ref := range d.Dependencies {
		if !isIdentifier(ref.Field) {
			return InvalidArgumentError{Argument: "field", Value: ref.Field}
		}
		if !isIdentifier(ref.Bean) {
			return InvalidArgumentError{Argument: "name", Value: ref.Bean}
		}
		if ref.Package != "" && !isIdentifier(ref.Package) {
			return InvalidArgumentError{Argument: "package", Value: ref.Package}
		}
		if seen[ref.Field] {
			return fmt.Errorf("%w: %q", ErrDuplicateField, ref.Field)
		}
		seen[ref.Field] = true
	}

	return nil
}
