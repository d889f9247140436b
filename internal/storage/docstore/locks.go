package docstore

import (
	"context"
	"sync"
)

// lockRegistry hands out one exclusive lock per document path.
// Entries are reference counted and dropped once nobody holds or waits for them.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	sem  chan struct{}
	refs int
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*pathLock)}
}

var (
	registriesMu sync.Mutex
	registries   = make(map[string]*lockRegistry)
)

// registryFor returns the registry shared by every Store of this process rooted at root.
// root must be absolute and free of symlinks so that one directory maps to one registry.
func registryFor(root string) *lockRegistry {
	registriesMu.Lock()
	defer registriesMu.Unlock()

	r, ok := registries[root]
	if !ok {
		r = newLockRegistry()
		registries[root] = r
	}
	return r
}

// lock blocks until the lock for path is acquired or ctx is done.
// The returned func releases the lock and must be called exactly once.
func (r *lockRegistry) lock(ctx context.Context, path string) (func(), error) {
	r.mu.Lock()
	l, ok := r.locks[path]
	if !ok {
		l = &pathLock{sem: make(chan struct{}, 1)}
		r.locks[path] = l
	}
	l.refs++
	r.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		r.release(path, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.sem
		r.release(path, l)
	}, nil
}

func (r *lockRegistry) release(path string, l *pathLock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(r.locks, path)
	}
}

func (r *lockRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
