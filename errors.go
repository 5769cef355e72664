package beans

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors matched with errors.Is. The typed errors below
// report them through their Is methods and carry the diagnostic context.

var (
	// Lookup errors.
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrBeanNotFound        = errors.New("bean not found")
	ErrAmbiguousDefinition = errors.New("ambiguous bean definition")
	ErrLoadRecursion       = errors.New("bean load recursion")
	ErrUnsupportedScope    = errors.New("unsupported scope")

	// Registration errors.
	ErrDefinitionNil       = errors.New("definition cannot be nil")
	ErrAllocatorNil        = errors.New("definition has no allocator")
	ErrAllocationNil       = errors.New("allocator returned nil")
	ErrDuplicateField      = errors.New("field injected twice")
	ErrDuplicateDefinition = errors.New("definition already registered")
	ErrRegistryNil         = errors.New("registry cannot be nil")
	ErrLoaderNil           = errors.New("loader cannot be nil")
	ErrFactoryNil          = errors.New("bean factory cannot be nil")
)

var (
	_ error = InvalidArgumentError{}
	_ error = BeanNotFoundError{}
	_ error = AmbiguousDefinitionError{}
	_ error = LoadRecursionError{}
	_ error = UnsupportedScopeError{}
	_ error = FactoryError{}
	_ error = FactoryPanicError{}
	_ error = InjectionError{}
	_ error = RegistrationError{}
	_ error = ModuleError{}
	_ error = LoaderError{}
	_ error = TypeMismatchError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// InvalidArgumentError indicates the caller passed a name, package or
// context that is not an identifier. No state is touched before it is returned.
type InvalidArgumentError struct {
	Argument string // "name", "package", "context", "field"
	Value    string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid bean %s %q: must be an identifier", e.Argument, e.Value)
}

func (e InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// BeanNotFoundError indicates that no definition matched a lookup.
type BeanNotFoundError struct {
	Name    string
	Package string // empty when every package was searched
	Context string
}

func (e BeanNotFoundError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("bean %q not found", e.Name))

	switch {
	case e.Package != "" && e.Context != "":
		b.WriteString(fmt.Sprintf(" in package %q (context: %s)", e.Package, e.Context))
	case e.Package != "":
		b.WriteString(fmt.Sprintf(" in package %q", e.Package))
	default:
		b.WriteString(" in any package")
	}

	return b.String()
}

func (e BeanNotFoundError) Is(target error) bool {
	return target == ErrBeanNotFound
}

// AmbiguousDefinitionError indicates that two or more definitions are
// equally valid for a lookup.
type AmbiguousDefinitionError struct {
	Name       string
	Package    string // empty for cross-package autodetection
	Candidates []DefinitionID
}

func (e AmbiguousDefinitionError) Error() string {
	var b strings.Builder
	if e.Package != "" {
		b.WriteString(fmt.Sprintf("bean %q has %d definitions in package %q:\n",
			e.Name, len(e.Candidates), e.Package))
	} else {
		b.WriteString(fmt.Sprintf("bean %q is defined in %d packages:\n", e.Name, len(e.Candidates)))
	}

	for _, c := range e.Candidates {
		b.WriteString(fmt.Sprintf("  • %s\n", c))
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Request the bean with beans.FromPackage\n")
	b.WriteString("  • Give the dependency an explicit package with beans.RefPackage\n")

	return b.String()
}

func (e AmbiguousDefinitionError) Is(target error) bool {
	return target == ErrAmbiguousDefinition
}

// LoadRecursionError indicates that a bean was reached again on the active
// resolution path before any instance of it existed.
type LoadRecursionError struct {
	Definition DefinitionID
	Path       []string
}

func (e LoadRecursionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("load recursion detected for %s:\n\n", e.Definition))

	for _, name := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", name))
		b.WriteString("      ↓\n")
	}
	b.WriteString(fmt.Sprintf("    %s (recursion)\n", e.Definition.Name))

	return b.String()
}

func (e LoadRecursionError) Is(target error) bool {
	return target == ErrLoadRecursion
}

// UnsupportedScopeError indicates a scope value outside the known scopes.
type UnsupportedScopeError struct {
	Definition DefinitionID
	Scope      Scope
	Value      string // raw text when decoding failed
}

func (e UnsupportedScopeError) Error() string {
	scope := e.Value
	if scope == "" {
		scope = e.Scope.String()
	}

	if e.Definition.Name != "" {
		return fmt.Sprintf("unsupported scope %s for %s", scope, e.Definition)
	}
	return fmt.Sprintf("unsupported scope %s", scope)
}

func (e UnsupportedScopeError) Is(target error) bool {
	return target == ErrUnsupportedScope
}

// FactoryError wraps an error returned by a bean's factory method.
type FactoryError struct {
	Definition DefinitionID
	Method     string
	Cause      error
}

func (e FactoryError) Error() string {
	return fmt.Sprintf("factory %s of %s failed: %v", e.Method, e.Definition, e.Cause)
}

func (e FactoryError) Unwrap() error {
	return e.Cause
}

// FactoryPanicError indicates a factory method panicked.
type FactoryPanicError struct {
	Definition DefinitionID
	Method     string
	Panic      any
	Stack      []byte
}

func (e FactoryPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("factory %s of %s panicked: %v\n", e.Method, e.Definition, e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// InjectionError indicates a dependency could not be assigned into a field.
type InjectionError struct {
	Definition DefinitionID
	Field      string
	Cause      error
}

func (e InjectionError) Error() string {
	return fmt.Sprintf("cannot inject field %q of %s: %v", e.Field, e.Definition, e.Cause)
}

func (e InjectionError) Unwrap() error {
	return e.Cause
}

// RegistrationError wraps errors raised while adding a definition.
type RegistrationError struct {
	Definition DefinitionID
	Cause      error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to register %s: %v", e.Definition, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// LoaderError wraps errors returned by a lazy loader.
type LoaderError struct {
	Name  string
	Cause error
}

func (e LoaderError) Error() string {
	return fmt.Sprintf("loading bean %q: %v", e.Name, e.Cause)
}

func (e LoaderError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a resolved bean is not of the requested type.
type TypeMismatchError struct {
	Bean     string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("bean %q: expected %s, got %s", e.Bean, formatType(e.Expected), formatType(e.Actual))
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
	}

	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// IsNotFound reports whether err is a bean-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBeanNotFound)
}

// IsAmbiguous reports whether err is an ambiguous-definition error.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguousDefinition)
}

// IsLoadRecursion reports whether err is a load-recursion error.
func IsLoadRecursion(err error) bool {
	return errors.Is(err, ErrLoadRecursion)
}

// IsInvalidArgument reports whether err is an invalid-argument error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
