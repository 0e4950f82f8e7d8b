// Package whailtest provides test doubles and helpers for testing code that
// uses the whail engine, in the style of net/http/httptest.
//
// The core type is FakeAPIClient, a function-field fake of whail.APIClient.
// Each method has a corresponding Fn field that controls its behavior. Unset
// methods panic with "not implemented" so unexpected calls fail loudly.
//
// Usage:
//
//	fake := whailtest.NewFakeAPIClient()
//	engine := whail.NewFromExisting(fake, whailtest.TestEngineOptions())
//
//	fake.ContainerStopFn = func(ctx context.Context, container string, opts client.ContainerStopOptions) (client.ContainerStopResult, error) {
//	    return client.ContainerStopResult{}, nil
//	}
//
//	whailtest.AssertCalled(t, fake, "ContainerStop")
package whailtest
