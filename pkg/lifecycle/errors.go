package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrDriverInstantiationFailed matches failures of DriverFactory.Instantiate.
	ErrDriverInstantiationFailed = errors.New("driver instantiation failed")

	// ErrCreateFailed matches failures of Driver.Create.
	ErrCreateFailed = errors.New("resource creation failed")

	// ErrPreStartActionFailed matches failures of a PreStartAction.
	ErrPreStartActionFailed = errors.New("pre-start action failed")

	// ErrStartFailed matches failures of Startable.Start.
	ErrStartFailed = errors.New("resource start failed")

	// ErrFirstProvisionFailed matches errors returned by Outcome.Require on a
	// cached failure.
	ErrFirstProvisionFailed = errors.New("first provision failed")

	// ErrTeardownFailed is attached to teardown-failed events. It is never
	// returned by FinishLifecycle.
	ErrTeardownFailed = errors.New("teardown failed")

	// ErrReleaseWithoutAcquire is returned by SharedResource.FinishLifecycle
	// when there are more releases than acquires.
	ErrReleaseWithoutAcquire = errors.New("release without matching acquire")

	// ErrNilFactory is returned by NewDefinition for a nil driver factory.
	ErrNilFactory = errors.New("lifecycle: nil driver factory")

	// ErrNilParams is returned by NewDefinition for nil parameters.
	ErrNilParams = errors.New("lifecycle: nil resource parameters")

	// ErrNilPreStartAction is returned by NewDefinition for a nil action.
	ErrNilPreStartAction = errors.New("lifecycle: nil pre-start action")
)

// ProvisionError describes the step of a provisioning attempt that failed.
type ProvisionError struct {
	Phase    Phase  // step that failed
	Resource string // resource name
	Action   string // pre-start action name, empty for other phases
	Err      error  // underlying error
}

func (e *ProvisionError) Error() string {
	switch {
	case e.Action != "":
		return fmt.Sprintf("%s: pre-start action %q failed: %v", e.Resource, e.Action, e.Err)
	default:
		return fmt.Sprintf("%s: %s failed: %v", e.Resource, e.Phase, e.Err)
	}
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for the failed phase.
func (e *ProvisionError) Is(target error) bool {
	return target != nil && target == sentinelFor(e.Phase)
}

func sentinelFor(p Phase) error {
	switch p {
	case PhaseInstantiating:
		return ErrDriverInstantiationFailed
	case PhaseCreating:
		return ErrCreateFailed
	case PhasePreStart:
		return ErrPreStartActionFailed
	case PhaseStarting:
		return ErrStartFailed
	}
	return nil
}

// FirstProvisionFailedError is returned by Outcome.Require when the cached
// outcome is a failure. The same value is returned on every call.
type FirstProvisionFailedError struct {
	Resource string
	Cause    error
}

func (e *FirstProvisionFailedError) Error() string {
	return fmt.Sprintf("%s: first provision failed: %v", e.Resource, e.Cause)
}

func (e *FirstProvisionFailedError) Unwrap() error {
	return e.Cause
}

// Is matches ErrFirstProvisionFailed.
func (e *FirstProvisionFailedError) Is(target error) bool {
	return target == ErrFirstProvisionFailed
}

// IsFirstProvisionFailed reports whether err came from a cached failed attempt
// rather than a fresh one.
func IsFirstProvisionFailed(err error) bool {
	return errors.Is(err, ErrFirstProvisionFailed)
}

// teardownError wraps a Close/Discard failure for event delivery.
func teardownError(resource string, err error) error {
	return fmt.Errorf("%s: %w: %w", resource, ErrTeardownFailed, err)
}

// panicError converts a recovered panic into an error.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
