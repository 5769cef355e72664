package beans

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"github.com/junioryono/beans/internal/inject"
)

// resolver is the bean-resolution engine. It is not safe for concurrent
// use; BeanFactory serializes every call under its lock.
type resolver struct {
	registry Registry
	loader   Loader
	stores   map[Scope]ScopeStore
	logger   *slog.Logger
}

// call is the state of one top-level GetBean.
type call struct {
	ctx context.Context

	// history counts the bean names on the active resolution path.
	history map[string]int
	path    []string

	// updated holds the instance of every bean already refreshed or
	// resolved as a dependency during this call. Prototype beans are never
	// recorded.
	updated map[*Definition]any

	// backfills spans every resolution of the call, so a shell handed out
	// by a nested resolution is patched when its enclosing one constructs it.
	backfills []backfill
}

func newCall(ctx context.Context) *call {
	return &call{
		ctx:     ctx,
		history: make(map[string]int),
		updated: make(map[*Definition]any),
	}
}

func (c *call) enter(name string) {
	c.history[name]++
	c.path = append(c.path, name)
}

func (c *call) leave(name string) {
	if c.history[name]--; c.history[name] <= 0 {
		delete(c.history, name)
	}
	c.path = c.path[:len(c.path)-1]
}

func (c *call) loading(name string) bool {
	return c.history[name] > 0
}

func (c *call) recursion(def *Definition) error {
	return LoadRecursionError{Definition: def.ID(), Path: append([]string(nil), c.path...)}
}

// node is an entry of the resolution cache: one shell per definition,
// shared by every edge that reaches it during a resolution.
type node struct {
	def  *Definition
	bean *ScopeBean
	deps map[*DependencyRef]*node

	// foreign marks a shell an enclosing resolution is constructing.
	foreign bool
}

// backfill is an edge that received a shell which was not yet constructed.
type backfill struct {
	owner    *node
	ref      *DependencyRef
	target   *node
	injected any
}

// resolution is the resolution cache of one resolveDefinition.
type resolution struct {
	nodes   map[*Definition]*node
	loading map[*node]bool
}

func newResolution() *resolution {
	return &resolution{
		nodes:   make(map[*Definition]*node),
		loading: make(map[*node]bool),
	}
}

// resolve looks the request up and returns the fully wired bean.
func (r *resolver) resolve(c *call, req lookup) (any, error) {
	if err := r.loader.Ensure(req.name); err != nil {
		return nil, err
	}

	def, err := findDefinition(r.registry, req)
	if err != nil {
		return nil, err
	}

	return r.resolveDefinition(c, def)
}

// resolveDefinition returns the cached bean of def, refreshing its
// dependencies, or builds def's whole subtree.
func (r *resolver) resolveDefinition(c *call, def *Definition) (any, error) {
	store, err := r.store(def)
	if err != nil {
		return nil, err
	}

	if bean, ok := store.Get(c.ctx, def.Class); ok && bean.Loaded() {
		if err := r.refresh(c, def, bean); err != nil {
			return nil, err
		}
		return bean.Instance(), nil
	}

	if c.loading(def.Name) {
		return nil, c.recursion(def)
	}

	c.enter(def.Name)
	defer c.leave(def.Name)

	if err := autodetectSubtree(r.registry, r.loader, def); err != nil {
		return nil, err
	}

	res := newResolution()
	root, err := r.preload(c, res, def)
	if err != nil {
		return nil, err
	}

	return r.load(c, res, root)
}

// preload puts a shell for every definition of the subtree into the
// resolution cache. New shells are published to their scope store at once,
// so every edge to the same class sees the same shell.
func (r *resolver) preload(c *call, res *resolution, def *Definition) (*node, error) {
	if n, ok := res.nodes[def]; ok {
		return n, nil
	}

	store, err := r.store(def)
	if err != nil {
		return nil, err
	}

	bean, cached := store.Get(c.ctx, def.Class)
	if !cached {
		bean = newShell(def.Allocate(), def.Retain)
		store.Save(c.ctx, def.Class, bean)
		r.logger.Debug("allocated bean shell",
			"bean", def.Name, "package", def.Package, "context", def.Context, "scope", def.Scope)
	}

	n := &node{def: def, bean: bean, deps: make(map[*DependencyRef]*node, len(def.Dependencies))}
	res.nodes[def] = n

	// A loaded bean's edges are already wired; load refreshes them.
	if bean.Loaded() {
		return n, nil
	}

	c.enter(def.Name)
	defer c.leave(def.Name)

	for _, ref := range def.Dependencies {
		target, err := autodetectRef(r.registry, def, ref)
		if err != nil {
			return nil, err
		}

		if c.loading(target.Name) && !r.loaded(c, target) {
			existing, err := r.shelled(c, res, def, target)
			if err != nil {
				return nil, err
			}
			n.deps[ref] = existing
			continue
		}

		child, err := r.preload(c, res, target)
		if err != nil {
			return nil, err
		}
		n.deps[ref] = child
	}

	return n, nil
}

// shelled returns the shell for a bean whose name is on the active path.
// A shell of this resolution, or one an enclosing resolution published, is
// handed out as is. Anything else, including a bean depending on itself, is
// a load recursion.
func (r *resolver) shelled(c *call, res *resolution, def, target *Definition) (*node, error) {
	if target == def {
		return nil, c.recursion(target)
	}

	if n, ok := res.nodes[target]; ok {
		return n, nil
	}

	store, err := r.store(target)
	if err != nil {
		return nil, err
	}

	bean, ok := store.Get(c.ctx, target.Class)
	if !ok {
		return nil, c.recursion(target)
	}

	n := &node{def: target, bean: bean, foreign: true}
	res.nodes[target] = n
	return n, nil
}

// underConstruction returns the shell of def when an enclosing resolution
// of this call is constructing it.
func (r *resolver) underConstruction(c *call, def *Definition) (*ScopeBean, bool) {
	if !c.loading(def.Name) {
		return nil, false
	}

	store, err := r.store(def)
	if err != nil {
		return nil, false
	}

	bean, ok := store.Get(c.ctx, def.Class)
	if !ok || bean.Loaded() {
		return nil, false
	}
	return bean, true
}

// loaded reports whether def's store holds a constructed bean.
func (r *resolver) loaded(c *call, def *Definition) bool {
	store, err := r.store(def)
	if err != nil {
		return false
	}
	bean, ok := store.Get(c.ctx, def.Class)
	return ok && bean.Loaded()
}

// load wires and constructs n depth first. A node that is already on the
// load stack hands out its shell; the edge is back-filled once the node is
// constructed.
func (r *resolver) load(c *call, res *resolution, n *node) (any, error) {
	if n.bean.Loaded() {
		if err := r.refresh(c, n.def, n.bean); err != nil {
			return nil, err
		}
		return n.bean.Instance(), nil
	}

	if n.foreign || res.loading[n] {
		return n.bean.Instance(), nil
	}

	res.loading[n] = true
	defer delete(res.loading, n)

	shell := n.bean.Instance()
	for _, ref := range n.def.Dependencies {
		child := n.deps[ref]

		value, err := r.load(c, res, child)
		if err != nil {
			return nil, err
		}

		if err := r.inject(n.def, shell, ref.Field, value); err != nil {
			return nil, err
		}

		if !child.bean.Loaded() {
			c.backfills = append(c.backfills, backfill{owner: n, ref: ref, target: child, injected: value})
		}
	}

	if err := r.construct(n); err != nil {
		return nil, err
	}

	if err := r.backfill(c, n); err != nil {
		return nil, err
	}

	return n.bean.Instance(), nil
}

// construct runs the factory method once and marks the bean loaded.
func (r *resolver) construct(n *node) error {
	def := n.def
	if def.Factory == nil {
		n.bean.finish(n.bean.Instance())
		r.logger.Debug("constructed bean", "bean", def.Name, "package", def.Package, "scope", def.Scope)
		return nil
	}

	value, err := invokeFactory(def, n.bean.Instance())
	if err != nil {
		r.logger.Warn("bean factory failed", "bean", def.Name, "package", def.Package, "method", def.FactoryMethod, "error", err)
		return err
	}

	n.bean.finish(value)
	r.logger.Debug("constructed bean", "bean", def.Name, "package", def.Package, "scope", def.Scope, "method", def.FactoryMethod)
	return nil
}

func invokeFactory(def *Definition, shell any) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = FactoryPanicError{Definition: def.ID(), Method: def.FactoryMethod, Panic: p, Stack: debug.Stack()}
		}
	}()

	value, err = def.Factory(shell)
	if err != nil {
		return nil, FactoryError{Definition: def.ID(), Method: def.FactoryMethod, Cause: err}
	}
	if value == nil {
		return nil, FactoryError{Definition: def.ID(), Method: def.FactoryMethod, Cause: fmt.Errorf("factory returned nil")}
	}

	return value, nil
}

// backfill replaces the shells handed out for n with its final instance.
// Edges are matched by scope bean, since a nested resolution reaches n
// through a node of its own.
func (r *resolver) backfill(c *call, n *node) error {
	final := n.bean.Instance()

	pending := c.backfills[:0]
	for _, bf := range c.backfills {
		if bf.target.bean != n.bean {
			pending = append(pending, bf)
			continue
		}

		if sameInstance(bf.injected, final) {
			continue
		}

		if err := r.inject(bf.owner.def, bf.owner.bean.Instance(), bf.ref.Field, final); err != nil {
			return err
		}
	}
	c.backfills = pending

	return nil
}

// refresh re-resolves and reassigns the dependencies of a loaded bean.
// Prototype dependencies are rebuilt every time, the others are resolved
// once per call and the same instance is assigned to every dependent.
func (r *resolver) refresh(c *call, def *Definition, bean *ScopeBean) error {
	if _, done := c.updated[def]; done {
		return nil
	}
	if def.Scope != Prototype {
		c.updated[def] = bean.Instance()
	}

	for _, ref := range def.Dependencies {
		target, err := autodetectRef(r.registry, def, ref)
		if err != nil {
			return err
		}

		if shell, ok := r.underConstruction(c, target); ok {
			if err := r.inject(def, bean.Instance(), ref.Field, shell.Instance()); err != nil {
				return err
			}
			c.backfills = append(c.backfills, backfill{
				owner:    &node{def: def, bean: bean},
				ref:      ref,
				target:   &node{def: target, bean: shell},
				injected: shell.Instance(),
			})
			continue
		}

		value, done := c.updated[target]
		if !done || target.Scope == Prototype {
			value, err = r.resolveDefinition(c, target)
			if err != nil {
				return err
			}
			if target.Scope != Prototype {
				c.updated[target] = value
			}
		}

		if err := r.inject(def, bean.Instance(), ref.Field, value); err != nil {
			return err
		}
	}

	if len(def.Dependencies) > 0 {
		r.logger.Debug("refreshed bean dependencies", "bean", def.Name, "package", def.Package)
	}

	return nil
}

func (r *resolver) inject(def *Definition, target any, field string, value any) error {
	if err := inject.SetField(target, field, value); err != nil {
		return InjectionError{Definition: def.ID(), Field: field, Cause: err}
	}
	return nil
}

func (r *resolver) store(def *Definition) (ScopeStore, error) {
	store, ok := r.stores[def.Scope]
	if !ok || store == nil {
		return nil, UnsupportedScopeError{Definition: def.ID(), Scope: def.Scope}
	}
	return store, nil
}

// sameInstance compares two beans without panicking on uncomparable values.
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
