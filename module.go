package beans

// ModuleOption represents a registration action within a module.
type ModuleOption func(Collection) error

// NewModule creates a module for package pkg. Definitions added through the
// module that still carry DefaultPackage are moved into pkg, so a module is
// the unit that autodetection groups by.
//
// Example:
//
//	var StorageModule = beans.NewModule("storage",
//	    beans.AddBean(beans.Bean[Database]("database")),
//	    beans.AddBean(beans.Bean[UserRepository]("user_repository", beans.DependsOn("database"))),
//	)
//
//	var TestStorageModule = beans.NewModule("storage",
//	    beans.UseContext("test"),
//	    beans.AddBean(beans.Bean[FakeDatabase]("database", beans.ForContext("test"))),
//	)
func NewModule(pkg string, builders ...ModuleOption) ModuleOption {
	return func(c Collection) error {
		if !isIdentifier(pkg) {
			return ModuleError{Module: pkg, Cause: InvalidArgumentError{Argument: "package", Value: pkg}}
		}

		scoped := &moduleCollection{Collection: c, pkg: pkg}
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(scoped); err != nil {
				return ModuleError{Module: pkg, Cause: err}
			}
		}

		return nil
	}
}

// AddBean creates a ModuleOption adding definitions.
func AddBean(defs ...*Definition) ModuleOption {
	return func(c Collection) error {
		return c.Add(defs...)
	}
}

// AddLoader creates a ModuleOption registering a lazy loader.
func AddLoader(name string, load LoaderFunc) ModuleOption {
	return func(c Collection) error {
		return c.AddLoader(name, load)
	}
}

// UseContext creates a ModuleOption selecting the context the module's
// package prefers during autodetection.
func UseContext(context string) ModuleOption {
	return func(c Collection) error {
		m, ok := c.(*moduleCollection)
		if !ok {
			return c.SetPackageContext(DefaultPackage, context)
		}
		return m.Collection.SetPackageContext(m.pkg, context)
	}
}

// moduleCollection moves definitions into the module's package.
type moduleCollection struct {
	Collection
	pkg string
}

func (m *moduleCollection) Add(defs ...*Definition) error {
	for _, def := range defs {
		if def != nil && def.Package == DefaultPackage {
			def.Package = m.pkg
		}
	}
	return m.Collection.Add(defs...)
}

func (m *moduleCollection) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(m); err != nil {
			return err
		}
	}
	return nil
}

func (m *moduleCollection) AddLoader(name string, load LoaderFunc) error {
	if load == nil {
		return m.Collection.AddLoader(name, nil)
	}

	// Beans added by a module's loader land in the module's package too.
	return m.Collection.AddLoader(name, func(c Collection) error {
		return load(&moduleCollection{Collection: c, pkg: m.pkg})
	})
}
