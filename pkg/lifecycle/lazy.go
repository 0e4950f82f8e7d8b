package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// State is the provisioning state of a LazyResource. It exists for
// diagnostics; callers should rely on Provide and FinishLifecycle.
type State string

const (
	StateUnprovisioned   State = "unprovisioned"
	StateProvisioning    State = "provisioning"
	StateProvisioned     State = "provisioned"
	StateProvisionFailed State = "provision-failed"
	StateTearingDown     State = "tearing-down"
)

// LazyResource provisions its definition on first Provide and caches the
// outcome until FinishLifecycle. It is safe for concurrent use.
type LazyResource[P any, R Running] struct {
	def    Definition[P, R]
	notify notifier
	log    zerolog.Logger

	mu       sync.Mutex
	state    State
	outcome  *Outcome[R]
	busy     chan struct{} // non-nil while an attempt or teardown runs
	attempts int
}

// NewLazy creates an unprovisioned resource for def. It panics if def was not
// built with NewDefinition.
func NewLazy[P any, R Running](def Definition[P, R], opts ...Option) *LazyResource[P, R] {
	if !def.valid() {
		panic(ErrNilFactory)
	}
	o := buildOptions(opts)
	return &LazyResource[P, R]{
		def:    def,
		notify: o.notifier(),
		log:    o.log,
		state:  StateUnprovisioned,
	}
}

// Name returns the definition name.
func (l *LazyResource[P, R]) Name() string {
	return l.def.Name()
}

// Definition returns the definition this resource provisions.
func (l *LazyResource[P, R]) Definition() Definition[P, R] {
	return l.def
}

// State returns the current state.
func (l *LazyResource[P, R]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Attempts returns the number of provisioning attempts started so far.
func (l *LazyResource[P, R]) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Provide returns the cached outcome, starting a provisioning attempt if
// there is none. Concurrent callers share a single attempt and receive the
// same outcome.
//
// The attempt is detached from ctx: if ctx ends first, Provide returns
// ctx.Err() and the attempt continues for other callers. Provisioning
// failures are reported through the outcome, never through the error.
func (l *LazyResource[P, R]) Provide(ctx context.Context) (*Outcome[R], error) {
	for {
		l.mu.Lock()
		if l.busy == nil && l.outcome != nil {
			o := l.outcome
			l.mu.Unlock()
			return o, nil
		}
		if l.busy == nil {
			done := make(chan struct{})
			l.busy = done
			l.state = StateProvisioning
			l.attempts++
			go l.provision(context.WithoutCancel(ctx), done)
		}
		busy := l.busy
		l.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Require is Provide followed by Outcome.Require.
func (l *LazyResource[P, R]) Require(ctx context.Context) (R, error) {
	o, err := l.Provide(ctx)
	if err != nil {
		var zero R
		return zero, err
	}
	return o.Require()
}

// FinishLifecycle tears down a provisioned handle and clears the cached
// outcome, including a cached failure. It waits for an in-flight attempt
// first. Teardown failures are reported as events and never returned; the
// only error is ctx.Err() when ctx ends while waiting for an attempt.
// Calling FinishLifecycle with nothing provisioned is a no-op.
func (l *LazyResource[P, R]) FinishLifecycle(ctx context.Context) error {
	for {
		l.mu.Lock()
		if busy := l.busy; busy != nil {
			l.mu.Unlock()
			select {
			case <-busy:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		o := l.outcome
		if o == nil {
			l.mu.Unlock()
			return nil
		}
		l.outcome = nil

		if !o.Succeeded() {
			l.state = StateUnprovisioned
			l.mu.Unlock()
			l.notify.emit(l.Name(), PhaseReset, o.Err(), "cleared cached provisioning failure")
			return nil
		}

		done := make(chan struct{})
		l.busy = done
		l.state = StateTearingDown
		l.mu.Unlock()

		l.teardown(context.WithoutCancel(ctx), o.handle)

		l.mu.Lock()
		l.busy = nil
		l.state = StateUnprovisioned
		l.mu.Unlock()
		close(done)
		return nil
	}
}

// provision runs one attempt and publishes its outcome.
func (l *LazyResource[P, R]) provision(ctx context.Context, done chan struct{}) {
	o := l.attempt(ctx)

	l.mu.Lock()
	l.outcome = o
	if o.Succeeded() {
		l.state = StateProvisioned
	} else {
		l.state = StateProvisionFailed
	}
	l.busy = nil
	l.mu.Unlock()
	close(done)
}

// attempt runs instantiate, create, pre-start actions and start, converting
// any error or panic into a failure outcome.
func (l *LazyResource[P, R]) attempt(ctx context.Context) (outcome *Outcome[R]) {
	name := l.Name()
	var startable Startable[R]

	fail := func(err *ProvisionError) *Outcome[R] {
		l.notify.emit(name, PhaseFailed, err, "")
		if startable != nil {
			l.discard(ctx, startable)
		}
		return Fail[R](name, err)
	}

	phase := PhaseInstantiating
	action := ""
	defer func() {
		if r := recover(); r != nil {
			outcome = fail(&ProvisionError{Phase: phase, Resource: name, Action: action, Err: panicError(r)})
		}
	}()

	l.notify.emit(name, PhaseInstantiating, nil, "")
	driver, err := l.def.factory.Instantiate(ctx)
	if err == nil && isNil(driver) {
		err = fmt.Errorf("factory returned a nil driver")
	}
	if err != nil {
		return fail(&ProvisionError{Phase: phase, Resource: name, Err: err})
	}

	phase = PhaseCreating
	l.notify.emit(name, PhaseCreating, nil, "")
	warn := func(msg string) {
		l.notify.emit(name, PhaseWarning, nil, msg)
	}
	startable, err = driver.Create(ctx, l.def.params, warn)
	if err == nil && isNil(startable) {
		err = fmt.Errorf("driver returned a nil startable")
	}
	if err != nil {
		startable = nil
		return fail(&ProvisionError{Phase: phase, Resource: name, Err: err})
	}

	phase = PhasePreStart
	for i, a := range l.def.preStart {
		action = actionName(a, i)
		l.notify.emit(name, PhasePreStart, nil, action)
		if err := a.Apply(ctx, startable); err != nil {
			return fail(&ProvisionError{Phase: phase, Resource: name, Action: action, Err: err})
		}
	}
	action = ""

	phase = PhaseStarting
	l.notify.emit(name, PhaseStarting, nil, "")
	handle, err := startable.Start(ctx)
	if err == nil && isNil(handle) {
		err = fmt.Errorf("startable returned a nil handle")
	}
	if err != nil {
		return fail(&ProvisionError{Phase: phase, Resource: name, Err: err})
	}

	l.notify.emit(name, PhaseStarted, nil, "")
	return Succeed(handle)
}

// discard releases an unstarted resource after a failed attempt.
func (l *LazyResource[P, R]) discard(ctx context.Context, s Startable[R]) {
	d, ok := s.(Discarder)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.notify.emit(l.Name(), PhaseTeardownFailed, teardownError(l.Name(), panicError(r)), "discard panicked")
		}
	}()
	if err := d.Discard(ctx); err != nil {
		l.notify.emit(l.Name(), PhaseTeardownFailed, teardownError(l.Name(), err), "discard failed")
	}
}

// teardown closes handle, reporting failures as events.
func (l *LazyResource[P, R]) teardown(ctx context.Context, handle R) {
	name := l.Name()
	l.notify.emit(name, PhaseStopping, nil, "")

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
			}
		}()
		return handle.Close(ctx)
	}()

	if err != nil {
		l.log.Warn().Err(err).Str("resource", name).Msg("resource teardown failed")
		l.notify.emit(name, PhaseTeardownFailed, teardownError(name, err), "")
		return
	}
	l.notify.emit(name, PhaseStopped, nil, "")
}

// emit exposes the notifier to wrappers in this package.
func (l *LazyResource[P, R]) emit(phase Phase, err error, msg string) {
	l.notify.emit(l.Name(), phase, err, msg)
}
