package lifecycle

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds one SharedResource per definition key. It replaces a
// process-wide singleton: create one per test binary (typically in TestMain)
// and Close it when the run ends.
type Registry[P any, R Running] struct {
	opts []Option

	mu        sync.Mutex
	resources map[string]*SharedResource[P, R]
}

// NewRegistry creates an empty registry. opts apply to every resource it
// creates.
func NewRegistry[P any, R Running](opts ...Option) *Registry[P, R] {
	return &Registry[P, R]{
		opts:      opts,
		resources: make(map[string]*SharedResource[P, R]),
	}
}

// Resource returns the shared resource for def.Key(), creating it on first
// use. Later definitions with the same key get the existing resource; their
// factory and actions are ignored.
func (r *Registry[P, R]) Resource(def Definition[P, R]) *SharedResource[P, R] {
	key := def.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.resources[key]; ok {
		return s
	}
	s := NewShared(def, r.opts...)
	r.resources[key] = s
	return s
}

// Acquire is Resource(def).Require(ctx). The claim must be released with
// Release or by closing the registry.
func (r *Registry[P, R]) Acquire(ctx context.Context, def Definition[P, R]) (R, error) {
	return r.Resource(def).Require(ctx)
}

// Release is Resource(def).FinishLifecycle(ctx).
func (r *Registry[P, R]) Release(ctx context.Context, def Definition[P, R]) error {
	return r.Resource(def).FinishLifecycle(ctx)
}

// Keys returns the registered keys in sorted order.
func (r *Registry[P, R]) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.resources))
	for k := range r.resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered resources.
func (r *Registry[P, R]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resources)
}

// Close tears down every registered resource in parallel, regardless of
// outstanding claims, and empties the registry.
func (r *Registry[P, R]) Close(ctx context.Context) error {
	r.mu.Lock()
	resources := r.resources
	r.resources = make(map[string]*SharedResource[P, R])
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range resources {
		g.Go(func() error {
			return s.Close(gctx)
		})
	}
	return g.Wait()
}
