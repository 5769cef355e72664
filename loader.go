package beans

import "sync"

// Loader makes a bean name available to the registry before lookup.
type Loader interface {
	// Ensure runs whatever registration is pending for name. It is a no-op
	// for names that are already loaded or have nothing pending.
	Ensure(name string) error
}

// LoaderFunc registers definitions on demand.
//
// Example:
//
//	collection.AddLoader("mailer", func(c beans.Collection) error {
//	    return c.Add(beans.Bean[Mailer]("mailer", beans.DependsOn("smtp")))
//	})
type LoaderFunc func(Collection) error

// lazyLoader runs each loader at most once, on first request of its name.
type lazyLoader struct {
	mu      sync.Mutex
	target  Collection
	pending map[string][]LoaderFunc
}

func newLazyLoader(target Collection) *lazyLoader {
	return &lazyLoader{
		target:  target,
		pending: make(map[string][]LoaderFunc),
	}
}

func (l *lazyLoader) add(name string, load LoaderFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending[name] = append(l.pending[name], load)
}

// Ensure runs the pending loaders for name in registration order. A loader
// that fails stays pending, together with the ones after it.
func (l *lazyLoader) Ensure(name string) error {
	for {
		l.mu.Lock()
		queue := l.pending[name]
		if len(queue) == 0 {
			delete(l.pending, name)
			l.mu.Unlock()
			return nil
		}
		load := queue[0]
		l.mu.Unlock()

		if err := load(l.target); err != nil {
			return LoaderError{Name: name, Cause: err}
		}

		l.mu.Lock()
		if q := l.pending[name]; len(q) > 0 {
			l.pending[name] = q[1:]
		}
		l.mu.Unlock()
	}
}
