// Package lifecycle coordinates the lifecycle of expensive, externally
// provisioned fixtures such as Docker containers.
//
// A [Definition] describes how to obtain a resource: a [DriverFactory], the
// driver parameters and an ordered list of [PreStartAction]s. A
// [LazyResource] turns a definition into at most one provisioning attempt,
// caches its [Outcome] and tears the handle down on [LazyResource.FinishLifecycle].
// A [SharedResource] adds reference counting so many consumers can share one
// handle, and a [Registry] keeps shared resources keyed by a stable identifier
// for the lifetime of a test process.
//
// # First failure
//
// A failed attempt is cached. Every later [Outcome.Require] returns the same
// [*FirstProvisionFailedError], wrapping the original cause, until the
// resource is finished. There is no automatic retry:
//
//	res := lifecycle.NewLazy(def)
//	if _, err := res.Require(ctx); err != nil {
//	    // errors.Is(err, lifecycle.ErrFirstProvisionFailed) == true
//	}
//	_ = res.FinishLifecycle(ctx) // resets the cached failure
//	_, err = res.Require(ctx)    // fresh attempt
//
// # Events
//
// Each transition is reported synchronously to the [Listener] registered with
// [WithListener]. Listener panics are recovered and logged.
package lifecycle
