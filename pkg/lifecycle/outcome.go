package lifecycle

import "errors"

// Outcome is the immutable result of one provisioning attempt: either a
// usable handle or a captured failure.
type Outcome[R Running] struct {
	handle R
	cause  error
	failed *FirstProvisionFailedError
}

// Succeed wraps a ready-to-use handle.
func Succeed[R Running](handle R) *Outcome[R] {
	return &Outcome[R]{handle: handle}
}

// Fail wraps a captured failure of the named resource.
func Fail[R Running](resource string, cause error) *Outcome[R] {
	if cause == nil {
		cause = errors.New("unknown provisioning failure")
	}
	return &Outcome[R]{
		cause:  cause,
		failed: &FirstProvisionFailedError{Resource: resource, Cause: cause},
	}
}

// Require returns the handle, or the cached *FirstProvisionFailedError. The
// error value is identical across calls.
func (o *Outcome[R]) Require() (R, error) {
	if o.failed != nil {
		var zero R
		return zero, o.failed
	}
	return o.handle, nil
}

// Succeeded reports whether the attempt produced a handle.
func (o *Outcome[R]) Succeeded() bool {
	return o.failed == nil
}

// Err returns the captured cause, or nil for a success.
func (o *Outcome[R]) Err() error {
	return o.cause
}
