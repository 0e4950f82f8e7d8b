// Package lifecycletest provides an in-memory driver and an event recorder
// for testing code built on lifecycle without a container runtime.
//
// Driver uses the function-field pattern: each step has an optional Fn field
// that can inject errors or block, and every call is recorded so tests can
// assert how often each step ran.
//
//	d := lifecycletest.NewDriver()
//	d.StartFn = func(ctx context.Context, c *lifecycletest.Created) error {
//		return errors.New("port already allocated")
//	}
//	res := lifecycle.NewLazy(d.Definition("db"))
package lifecycletest
