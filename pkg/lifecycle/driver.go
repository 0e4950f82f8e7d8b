package lifecycle

import "context"

// Running is a started resource handle. Close stops and removes it.
type Running interface {
	Close(ctx context.Context) error
}

// WarningListener receives non-fatal advisory messages during creation.
type WarningListener func(message string)

// DriverFactory produces a Driver. It is invoked at most once per attempt.
type DriverFactory[P any, R Running] interface {
	Instantiate(ctx context.Context) (Driver[P, R], error)
}

// Driver creates resources that have not been started yet.
type Driver[P any, R Running] interface {
	Create(ctx context.Context, params P, warn WarningListener) (Startable[R], error)
}

// Startable is a created resource awaiting Start.
type Startable[R Running] interface {
	Start(ctx context.Context) (R, error)
}

// Discarder is an optional capability of a Startable. Discard releases a
// created resource that will never be started because a later step of the
// attempt failed.
type Discarder interface {
	Discard(ctx context.Context) error
}

// PreStartAction configures a created resource before it is started.
type PreStartAction[R Running] interface {
	Apply(ctx context.Context, s Startable[R]) error
}

// DriverFactoryFunc adapts a function to DriverFactory.
type DriverFactoryFunc[P any, R Running] func(ctx context.Context) (Driver[P, R], error)

// Instantiate calls f(ctx).
func (f DriverFactoryFunc[P, R]) Instantiate(ctx context.Context) (Driver[P, R], error) {
	return f(ctx)
}

// PreStartFunc adapts a function to PreStartAction.
type PreStartFunc[R Running] func(ctx context.Context, s Startable[R]) error

// Apply calls f(ctx, s).
func (f PreStartFunc[R]) Apply(ctx context.Context, s Startable[R]) error {
	return f(ctx, s)
}

// Named is implemented by pre-start actions that carry a display name.
type Named interface {
	Name() string
}

type namedAction[R Running] struct {
	name   string
	action PreStartAction[R]
}

func (a namedAction[R]) Name() string { return a.name }

func (a namedAction[R]) Apply(ctx context.Context, s Startable[R]) error {
	return a.action.Apply(ctx, s)
}

// NamedAction attaches a name to action. The name appears in events and in
// ProvisionError.Action.
func NamedAction[R Running](name string, action PreStartAction[R]) PreStartAction[R] {
	return namedAction[R]{name: name, action: action}
}
