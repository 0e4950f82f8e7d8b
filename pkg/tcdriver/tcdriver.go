// Package tcdriver provisions lifecycle resources through testcontainers-go.
// The request's wait strategy runs when the container starts, so a provided
// handle is ready to use.
package tcdriver

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
)

// Params wrap a testcontainers request.
type Params struct {
	// Name is the resource name. Empty uses the request image.
	Name    string
	Request testcontainers.ContainerRequest
}

// Key identifies equivalent requests for registry sharing.
func (p *Params) Key() string {
	ports := slices.Clone(p.Request.ExposedPorts)
	slices.Sort(ports)
	env := make([]string, 0, len(p.Request.Env))
	for k, v := range p.Request.Env {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)
	return strings.Join([]string{
		p.Name,
		p.Request.Image,
		strings.Join(p.Request.Cmd, " "),
		strings.Join(ports, ","),
		strings.Join(env, ","),
	}, "|")
}

func (p *Params) resourceName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Request.Image
}

// Provider is the part of *testcontainers.DockerProvider the driver uses.
type Provider interface {
	Health(ctx context.Context) error
	CreateContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, error)
	Close() error
}

var _ Provider = (*testcontainers.DockerProvider)(nil)

// Option configures a Factory.
type Option func(*Factory)

// WithProvider replaces the Docker provider constructor.
func WithProvider(fn func() (Provider, error)) Option {
	return func(f *Factory) {
		f.newProvider = fn
	}
}

// WithLogger sets the driver logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Factory) {
		f.log = log
	}
}

// Factory is a lifecycle.DriverFactory backed by one testcontainers provider.
type Factory struct {
	newProvider func() (Provider, error)
	log         zerolog.Logger

	mu       sync.Mutex
	provider Provider
}

// NewFactory creates a factory that connects to the Docker host
// testcontainers discovers from the environment.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		newProvider: func() (Provider, error) {
			return testcontainers.NewDockerProvider()
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ lifecycle.DriverFactory[*Params, *Container] = (*Factory)(nil)

// Instantiate returns a driver on a healthy provider.
func (f *Factory) Instantiate(ctx context.Context) (lifecycle.Driver[*Params, *Container], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.provider == nil {
		p, err := f.newProvider()
		if err != nil {
			return nil, fmt.Errorf("creating docker provider: %w", err)
		}
		f.provider = p
	}
	if err := f.provider.Health(ctx); err != nil {
		return nil, fmt.Errorf("docker provider unhealthy: %w", err)
	}
	return &driver{provider: f.provider, log: f.log}, nil
}

// Close releases the provider.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.provider == nil {
		return nil
	}
	err := f.provider.Close()
	f.provider = nil
	return err
}

// Definition builds a lifecycle definition for p provisioned by f.
func (f *Factory) Definition(p *Params, actions ...lifecycle.PreStartAction[*Container]) (lifecycle.Definition[*Params, *Container], error) {
	if p == nil {
		return lifecycle.Definition[*Params, *Container]{}, lifecycle.ErrNilParams
	}
	return lifecycle.NewDefinition[*Params, *Container](p.resourceName(), f, p, actions...)
}

type driver struct {
	provider Provider
	log      zerolog.Logger
}

func (d *driver) Create(ctx context.Context, p *Params, _ lifecycle.WarningListener) (lifecycle.Startable[*Container], error) {
	if p.Request.Image == "" && p.Request.FromDockerfile.Context == "" {
		return nil, fmt.Errorf("fixture %q has no image", p.Name)
	}
	c, err := d.provider.CreateContainer(ctx, p.Request)
	if err != nil {
		return nil, err
	}
	d.log.Debug().Str("fixture", p.Name).Str("container_id", c.GetContainerID()).Msg("created container")
	return &Created{container: c, params: p, log: d.log}, nil
}

// Created is a created but unstarted container.
type Created struct {
	container testcontainers.Container
	params    *Params
	log       zerolog.Logger
}

var (
	_ lifecycle.Startable[*Container] = (*Created)(nil)
	_ lifecycle.Discarder             = (*Created)(nil)
)

// Container returns the underlying testcontainers container.
func (c *Created) Container() testcontainers.Container { return c.container }

// Start starts the container, waits for readiness and resolves its exposed
// ports.
func (c *Created) Start(ctx context.Context) (*Container, error) {
	if err := c.container.Start(ctx); err != nil {
		return nil, err
	}
	host, err := c.container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	ports := make(map[string]string)
	for _, spec := range c.params.Request.ExposedPorts {
		port := normalizePort(spec)
		mapped, err := c.container.MappedPort(ctx, nat.Port(port))
		if err != nil {
			return nil, fmt.Errorf("failed to get mapped port for %s: %w", spec, err)
		}
		ports[port] = mapped.Port()
	}

	c.log.Debug().Str("fixture", c.params.Name).Interface("ports", ports).Msg("started container")
	return &Container{Container: c.container, Host: host, Ports: ports}, nil
}

// Discard terminates the unstarted container.
func (c *Created) Discard(ctx context.Context) error {
	return c.container.Terminate(ctx)
}

// Container is a started, ready container.
type Container struct {
	Container testcontainers.Container
	Host      string

	// Ports maps exposed ports ("6379/tcp") to mapped host ports.
	Ports map[string]string
}

var _ lifecycle.Running = (*Container)(nil)

// MappedPort returns the host port for an exposed port.
func (c *Container) MappedPort(spec string) (string, error) {
	if p, ok := c.Ports[normalizePort(spec)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("port %s is not exposed", spec)
}

// HostAddress returns host:port for an exposed port.
func (c *Container) HostAddress(spec string) (string, error) {
	p, err := c.MappedPort(spec)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(c.Host, p), nil
}

// Close terminates the container.
func (c *Container) Close(ctx context.Context) error {
	return c.Container.Terminate(ctx)
}

// CopyFile writes content to target inside the container before it starts.
func CopyFile(target string, content []byte, mode int64) lifecycle.PreStartAction[*Container] {
	name := "copy " + target
	return lifecycle.NamedAction[*Container](name, lifecycle.PreStartFunc[*Container](func(ctx context.Context, s lifecycle.Startable[*Container]) error {
		c, ok := s.(*Created)
		if !ok {
			return fmt.Errorf("action %q needs a testcontainers container, got %T", name, s)
		}
		return c.container.CopyToContainer(ctx, content, target, mode)
	}))
}

func normalizePort(spec string) string {
	if strings.Contains(spec, "/") {
		return spec
	}
	return spec + "/tcp"
}
