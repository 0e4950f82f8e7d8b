package dockerdriver

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// DefaultHost is the address used to reach published ports.
const DefaultHost = "127.0.0.1"

// Option configures a Factory.
type Option func(*Factory)

// WithEngineOptions sets the options used to connect the engine.
func WithEngineOptions(opts whail.EngineOptions) Option {
	return func(f *Factory) {
		f.engineOpts = opts
	}
}

// WithEngine reuses an existing engine instead of connecting one. The
// factory does not close it.
func WithEngine(e *whail.Engine) Option {
	return func(f *Factory) {
		f.engine = e
		f.ownsEngine = false
	}
}

// WithLogger sets the driver logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Factory) {
		f.log = log
	}
}

// WithHost sets the address reported for published ports.
func WithHost(host string) Option {
	return func(f *Factory) {
		f.host = host
	}
}

// Factory is a lifecycle.DriverFactory for Docker containers. It connects
// one engine on first use and shares it across attempts.
type Factory struct {
	engineOpts whail.EngineOptions
	log        zerolog.Logger
	host       string
	connect    func(ctx context.Context, opts whail.EngineOptions) (*whail.Engine, error)

	mu         sync.Mutex
	engine     *whail.Engine
	ownsEngine bool
}

// NewFactory creates a factory. Without WithEngine it connects to the daemon
// configured by the environment.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		log:        zerolog.Nop(),
		host:       DefaultHost,
		connect:    whail.New,
		ownsEngine: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ lifecycle.DriverFactory[*Params, *Container] = (*Factory)(nil)

// Instantiate returns a driver bound to a healthy engine.
func (f *Factory) Instantiate(ctx context.Context) (lifecycle.Driver[*Params, *Container], error) {
	e, err := f.Engine(ctx)
	if err != nil {
		return nil, err
	}
	return &Driver{engine: e, host: f.host, log: f.log}, nil
}

// Engine returns the shared engine, connecting it if needed, and verifies the
// daemon is reachable.
func (f *Factory) Engine(ctx context.Context) (*whail.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.engine == nil {
		e, err := f.connect(ctx, f.engineOpts)
		if err != nil {
			return nil, err
		}
		f.engine = e
		return e, nil
	}
	if err := f.engine.HealthCheck(ctx); err != nil {
		return nil, err
	}
	return f.engine, nil
}

// Close releases an engine the factory connected itself.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.engine == nil || !f.ownsEngine {
		return nil
	}
	err := f.engine.Close()
	f.engine = nil
	return err
}

// Definition builds a lifecycle definition for p provisioned by f.
func (f *Factory) Definition(p *Params, actions ...lifecycle.PreStartAction[*Container]) (lifecycle.Definition[*Params, *Container], error) {
	if p == nil {
		return lifecycle.Definition[*Params, *Container]{}, lifecycle.ErrNilParams
	}
	return lifecycle.NewDefinition[*Params, *Container](p.resourceName(), f, p, actions...)
}
