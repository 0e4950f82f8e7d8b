package lifecycle

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// SharedResource is a reference-counted LazyResource. Each Provide is a claim
// that must be matched by one FinishLifecycle; the wrapped resource is torn
// down when the last claim is released.
type SharedResource[P any, R Running] struct {
	lazy *LazyResource[P, R]
	log  zerolog.Logger

	mu        sync.Mutex
	consumers int
}

// NewShared creates a shared resource for def with no consumers.
func NewShared[P any, R Running](def Definition[P, R], opts ...Option) *SharedResource[P, R] {
	o := buildOptions(opts)
	return &SharedResource[P, R]{
		lazy: NewLazy(def, opts...),
		log:  o.log,
	}
}

// Name returns the definition name.
func (s *SharedResource[P, R]) Name() string {
	return s.lazy.Name()
}

// Lazy returns the wrapped resource.
func (s *SharedResource[P, R]) Lazy() *LazyResource[P, R] {
	return s.lazy
}

// Consumers returns the number of claims not yet released.
func (s *SharedResource[P, R]) Consumers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumers
}

// State returns the state of the wrapped resource.
func (s *SharedResource[P, R]) State() State {
	return s.lazy.State()
}

// Provide registers a claim and returns the shared outcome. The claim is
// counted even when ctx ends before the outcome is ready; the caller must
// still call FinishLifecycle.
func (s *SharedResource[P, R]) Provide(ctx context.Context) (*Outcome[R], error) {
	s.mu.Lock()
	s.consumers++
	s.mu.Unlock()
	return s.lazy.Provide(ctx)
}

// Require is Provide followed by Outcome.Require. It registers a claim in
// every case.
func (s *SharedResource[P, R]) Require(ctx context.Context) (R, error) {
	o, err := s.Provide(ctx)
	if err != nil {
		var zero R
		return zero, err
	}
	return o.Require()
}

// FinishLifecycle releases one claim. Releasing the last claim tears the
// wrapped resource down before returning. An unmatched release leaves the
// count at zero, emits PhaseReleaseWithoutAcquire and returns
// ErrReleaseWithoutAcquire.
func (s *SharedResource[P, R]) FinishLifecycle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumers == 0 {
		s.log.Warn().Str("resource", s.Name()).Msg("shared resource released more times than acquired")
		s.lazy.emit(PhaseReleaseWithoutAcquire, ErrReleaseWithoutAcquire, "")
		return ErrReleaseWithoutAcquire
	}
	s.consumers--
	if s.consumers > 0 {
		return nil
	}
	// Holding mu keeps a concurrent Provide from claiming a handle that is
	// being torn down.
	return s.lazy.FinishLifecycle(context.WithoutCancel(ctx))
}

// Close tears the resource down regardless of outstanding claims and resets
// the count to zero. Leaked claims are logged.
func (s *SharedResource[P, R]) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumers > 0 {
		s.log.Warn().
			Str("resource", s.Name()).
			Int("consumers", s.consumers).
			Msg("closing shared resource with outstanding consumers")
	}
	s.consumers = 0
	return s.lazy.FinishLifecycle(context.WithoutCancel(ctx))
}
