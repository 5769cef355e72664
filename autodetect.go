package beans

import "sort"

// lookup is a request for a bean by name, optionally pinned to a package
// and context.
type lookup struct {
	name    string
	pkg     string
	context string
}

// findDefinition resolves a top-level request to exactly one definition.
//
// An explicit context is used as is. An explicit package selects the
// package's configured context. Without either, the context is whatever the
// autodetected definition declares.
func findDefinition(reg Registry, req lookup) (*Definition, error) {
	pkg, context := req.pkg, req.context

	if context == "" {
		var (
			def *Definition
			err error
		)
		if pkg != "" {
			def, err = autodetectInPackage(reg, req.name, pkg)
		} else {
			def, err = autodetectAcrossPackages(reg, req.name)
		}
		if err != nil {
			return nil, err
		}
		pkg, context = def.Package, def.Context
	}

	return reg.FindExact(req.name, pkg, context)
}

// autodetectRef resolves a dependency edge and memoizes the result on it.
// A ref without a package prefers the referencing bean's package, then
// falls back to cross-package autodetection.
func autodetectRef(reg Registry, parent *Definition, ref *DependencyRef) (*Definition, error) {
	if ref.resolved != nil {
		return ref.resolved, nil
	}

	var (
		def *Definition
		err error
	)
	switch {
	case ref.Package != "":
		def, err = autodetectInPackage(reg, ref.Bean, ref.Package)
	default:
		def = preferPackage(reg, ref.Bean, parent.Package)
		if def == nil {
			def, err = autodetectAcrossPackages(reg, ref.Bean)
		}
	}
	if err != nil {
		return nil, err
	}

	ref.resolved = def
	return def, nil
}

// autodetectInPackage returns the single definition of name in pkg, using
// the package's context with fallback to DefaultContext.
func autodetectInPackage(reg Registry, name, pkg string) (*Definition, error) {
	context := reg.PackageContext(pkg)
	matches := reg.FilterWithDefaultFallback(name, pkg, context)

	switch len(matches) {
	case 0:
		return nil, BeanNotFoundError{Name: name, Package: pkg}
	case 1:
		return matches[0], nil
	default:
		return nil, AmbiguousDefinitionError{Name: name, Package: pkg, Candidates: definitionIDs(matches)}
	}
}

// preferPackage returns the unambiguous candidate of name in pkg, or nil.
func preferPackage(reg Registry, name, pkg string) *Definition {
	matches := reg.FilterWithDefaultFallback(name, pkg, reg.PackageContext(pkg))
	if len(matches) == 1 {
		return matches[0]
	}
	return nil
}

// autodetectAcrossPackages keeps at most one candidate per package: the
// definition in the package's context, else the one in DefaultContext.
// Exactly one package may produce a candidate.
func autodetectAcrossPackages(reg Registry, name string) (*Definition, error) {
	byPackage := make(map[string][]*Definition)
	for _, def := range reg.FilterByName(name) {
		byPackage[def.Package] = append(byPackage[def.Package], def)
	}

	packages := make([]string, 0, len(byPackage))
	for pkg := range byPackage {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)

	var candidates []*Definition
	for _, pkg := range packages {
		if def := pickForPackage(byPackage[pkg], reg.PackageContext(pkg)); def != nil {
			candidates = append(candidates, def)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, BeanNotFoundError{Name: name}
	case 1:
		return candidates[0], nil
	default:
		return nil, AmbiguousDefinitionError{Name: name, Candidates: definitionIDs(candidates)}
	}
}

func pickForPackage(defs []*Definition, context string) *Definition {
	var fallback *Definition
	for _, def := range defs {
		if def.Context == context {
			return def
		}
		if def.Context == DefaultContext {
			fallback = def
		}
	}
	return fallback
}

// autodetectSubtree resolves every unresolved edge reachable from root
// before anything is instantiated.
func autodetectSubtree(reg Registry, loader Loader, root *Definition) error {
	visited := map[*Definition]bool{root: true}
	stack := []*Definition{root}

	for len(stack) > 0 {
		def := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, ref := range def.Dependencies {
			if ref.resolved == nil {
				if err := loader.Ensure(ref.Bean); err != nil {
					return err
				}
			}

			target, err := autodetectRef(reg, def, ref)
			if err != nil {
				return err
			}

			if !visited[target] {
				visited[target] = true
				stack = append(stack, target)
			}
		}
	}

	return nil
}
