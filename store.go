package beans

import (
	"context"
	"reflect"
	"sync"
)

// ScopeBean wraps one bean instance with its construction state.
// A shell is allocated but not yet wired and constructed; a loaded bean is final.
type ScopeBean struct {
	instance any
	loaded   bool
	retain   bool
}

func newShell(instance any, retain bool) *ScopeBean {
	return &ScopeBean{instance: instance, retain: retain}
}

// Instance returns the shell before loading and the final bean after.
func (b *ScopeBean) Instance() any {
	return b.instance
}

// Loaded reports whether the bean finished construction.
func (b *ScopeBean) Loaded() bool {
	return b.loaded
}

// finish replaces the payload with the constructed bean.
func (b *ScopeBean) finish(instance any) {
	b.instance = instance
	b.loaded = true
}

// ScopeStore caches ScopeBeans per class for one scope.
type ScopeStore interface {
	// Get returns the cached bean for class.
	Get(ctx context.Context, class reflect.Type) (*ScopeBean, bool)

	// Save caches bean for class, replacing any previous one.
	Save(ctx context.Context, class reflect.Type, bean *ScopeBean)

	// Clear drops the beans the scope does not retain.
	Clear()

	// ForceClear drops every bean.
	ForceClear()
}

var (
	_ ScopeStore = (*singletonStore)(nil)
	_ ScopeStore = prototypeStore{}
	_ ScopeStore = (*threadStore)(nil)
)

// singletonStore holds one bean per class for the whole factory.
type singletonStore struct {
	mu    sync.RWMutex
	beans map[reflect.Type]*ScopeBean
}

func newSingletonStore() *singletonStore {
	return &singletonStore{beans: make(map[reflect.Type]*ScopeBean)}
}

func (s *singletonStore) Get(_ context.Context, class reflect.Type) (*ScopeBean, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bean, ok := s.beans[class]
	return bean, ok
}

func (s *singletonStore) Save(_ context.Context, class reflect.Type, bean *ScopeBean) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beans[class] = bean
}

func (s *singletonStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropUnretained(s.beans)
}

func (s *singletonStore) ForceClear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beans = make(map[reflect.Type]*ScopeBean)
}

func (s *singletonStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.beans)
}

// prototypeStore never caches.
type prototypeStore struct{}

func (prototypeStore) Get(context.Context, reflect.Type) (*ScopeBean, bool) { return nil, false }
func (prototypeStore) Save(context.Context, reflect.Type, *ScopeBean)       {}
func (prototypeStore) Clear()                                               {}
func (prototypeStore) ForceClear()                                          {}

// threadStore holds one bean per class for every thread ID.
type threadStore struct {
	mu      sync.RWMutex
	threads map[string]map[reflect.Type]*ScopeBean
}

func newThreadStore() *threadStore {
	return &threadStore{threads: make(map[string]map[reflect.Type]*ScopeBean)}
}

func (s *threadStore) Get(ctx context.Context, class reflect.Type) (*ScopeBean, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bean, ok := s.threads[ThreadID(ctx)][class]
	return bean, ok
}

func (s *threadStore) Save(ctx context.Context, class reflect.Type, bean *ScopeBean) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ThreadID(ctx)
	beans, ok := s.threads[id]
	if !ok {
		beans = make(map[reflect.Type]*ScopeBean)
		s.threads[id] = beans
	}
	beans[class] = bean
}

func (s *threadStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, beans := range s.threads {
		dropUnretained(beans)
		if len(beans) == 0 {
			delete(s.threads, id)
		}
	}
}

func (s *threadStore) ForceClear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = make(map[string]map[reflect.Type]*ScopeBean)
}

// release drops every bean of one thread ID.
func (s *threadStore) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, id)
}

func (s *threadStore) threadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.threads)
}

func dropUnretained(beans map[reflect.Type]*ScopeBean) {
	for class, bean := range beans {
		if !bean.retain {
			delete(beans, class)
		}
	}
}
