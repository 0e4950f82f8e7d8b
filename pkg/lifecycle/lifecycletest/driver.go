package lifecycletest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
)

// Params are the resource parameters understood by Driver.
type Params struct {
	Name  string
	Image string
}

// Key identifies the parameters in a lifecycle.Registry.
func (p *Params) Key() string {
	return p.Name + "@" + p.Image
}

// Handle is a started fake resource.
type Handle struct {
	ID     string
	Params *Params

	driver *Driver
	mu     sync.Mutex
	closed int
}

// Close records a teardown and delegates to Driver.CloseFn.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed++
	h.mu.Unlock()
	return h.driver.close(ctx, h)
}

// Closed returns how many times Close was called.
func (h *Handle) Closed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Created is a created but not yet started fake resource. It implements
// lifecycle.Discarder.
type Created struct {
	Params *Params

	driver *Driver
	mu     sync.Mutex
	marks  []string
}

// Mark records a configuration step applied before start.
func (c *Created) Mark(step string) {
	c.mu.Lock()
	c.marks = append(c.marks, step)
	c.mu.Unlock()
}

// Marks returns the recorded configuration steps in order.
func (c *Created) Marks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.marks...)
}

// Start delegates to Driver.StartFn and returns a new Handle.
func (c *Created) Start(ctx context.Context) (*Handle, error) {
	return c.driver.start(ctx, c)
}

// Discard delegates to Driver.DiscardFn.
func (c *Created) Discard(ctx context.Context) error {
	return c.driver.discard(ctx, c)
}

// Driver is a fake lifecycle driver and factory. Unset Fn fields succeed.
// A Driver is safe for concurrent use; set the Fn fields before use.
type Driver struct {
	InstantiateFn func(ctx context.Context) error
	CreateFn      func(ctx context.Context, p *Params, warn lifecycle.WarningListener) error
	StartFn       func(ctx context.Context, c *Created) error
	CloseFn       func(ctx context.Context, h *Handle) error
	DiscardFn     func(ctx context.Context, c *Created) error

	mu      sync.Mutex
	calls   []string
	handles []*Handle
}

// NewDriver returns a Driver whose steps all succeed.
func NewDriver() *Driver {
	return &Driver{}
}

// Instantiate implements lifecycle.DriverFactory.
func (d *Driver) Instantiate(ctx context.Context) (lifecycle.Driver[*Params, *Handle], error) {
	d.record("Instantiate")
	if d.InstantiateFn != nil {
		if err := d.InstantiateFn(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Create implements lifecycle.Driver.
func (d *Driver) Create(ctx context.Context, p *Params, warn lifecycle.WarningListener) (lifecycle.Startable[*Handle], error) {
	d.record("Create")
	if d.CreateFn != nil {
		if err := d.CreateFn(ctx, p, warn); err != nil {
			return nil, err
		}
	}
	return &Created{Params: p, driver: d}, nil
}

func (d *Driver) start(ctx context.Context, c *Created) (*Handle, error) {
	d.record("Start")
	if d.StartFn != nil {
		if err := d.StartFn(ctx, c); err != nil {
			return nil, err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := &Handle{
		ID:     fmt.Sprintf("%s-%d", c.Params.Name, len(d.handles)+1),
		Params: c.Params,
		driver: d,
	}
	d.handles = append(d.handles, h)
	return h, nil
}

func (d *Driver) close(ctx context.Context, h *Handle) error {
	d.record("Close")
	if d.CloseFn != nil {
		return d.CloseFn(ctx, h)
	}
	return nil
}

func (d *Driver) discard(ctx context.Context, c *Created) error {
	d.record("Discard")
	if d.DiscardFn != nil {
		return d.DiscardFn(ctx, c)
	}
	return nil
}

func (d *Driver) record(method string) {
	d.mu.Lock()
	d.calls = append(d.calls, method)
	d.mu.Unlock()
}

// Calls returns the recorded method names in call order.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Count returns how many times method was called.
func (d *Driver) Count(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == method {
			n++
		}
	}
	return n
}

// Handles returns every handle started so far.
func (d *Driver) Handles() []*Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Handle(nil), d.handles...)
}

// AssertCalledN fails the test if method was not called exactly n times.
func (d *Driver) AssertCalledN(t testing.TB, method string, n int) {
	t.Helper()
	if got := d.Count(method); got != n {
		t.Errorf("expected %s to be called %d times, got %d (calls: %v)", method, n, got, d.Calls())
	}
}

// Definition builds a definition named name that provisions through d.
func (d *Driver) Definition(name string, actions ...lifecycle.PreStartAction[*Handle]) lifecycle.Definition[*Params, *Handle] {
	return lifecycle.MustDefinition[*Params, *Handle](name, d, &Params{Name: name, Image: "fake"}, actions...)
}
