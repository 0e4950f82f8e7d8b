package whail

import (
	"context"

	"github.com/moby/moby/client"
)

// APIClient is the subset of the moby client used by Engine. *client.Client
// satisfies it.
type APIClient interface {
	Ping(ctx context.Context, options client.PingOptions) (client.PingResult, error)
	Close() error

	ContainerCreate(ctx context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStart(ctx context.Context, container string, opts client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerStop(ctx context.Context, container string, opts client.ContainerStopOptions) (client.ContainerStopResult, error)
	ContainerRemove(ctx context.Context, container string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
	ContainerInspect(ctx context.Context, container string, opts client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	ContainerList(ctx context.Context, opts client.ContainerListOptions) (client.ContainerListResult, error)
	ContainerLogs(ctx context.Context, container string, opts client.ContainerLogsOptions) (client.ContainerLogsResult, error)
	CopyToContainer(ctx context.Context, container string, opts client.CopyToContainerOptions) (client.CopyToContainerResult, error)

	ExecCreate(ctx context.Context, container string, opts client.ExecCreateOptions) (client.ExecCreateResult, error)
	ExecAttach(ctx context.Context, execID string, opts client.ExecAttachOptions) (client.ExecAttachResult, error)
	ExecInspect(ctx context.Context, execID string, opts client.ExecInspectOptions) (client.ExecInspectResult, error)

	ImageInspect(ctx context.Context, image string, opts ...client.ImageInspectOption) (client.ImageInspectResult, error)
	ImagePull(ctx context.Context, ref string, opts client.ImagePullOptions) (client.ImagePullResponse, error)
}

var _ APIClient = (*client.Client)(nil)

// EngineOptions configures the behavior of the Engine.
type EngineOptions struct {
	// LabelPrefix is the prefix for all managed labels (e.g., "com.myapp").
	// Used to construct the managed label key: "{LabelPrefix}.{ManagedLabel}".
	LabelPrefix string

	// ManagedLabel is the label key suffix that marks resources as managed.
	// Default: "managed".
	ManagedLabel string

	// Labels are applied to every container the engine creates.
	Labels map[string]string
}

// DefaultManagedLabel is the default label suffix for marking managed resources.
const DefaultManagedLabel = "managed"

// DefaultLabelPrefix is used when EngineOptions.LabelPrefix is empty.
const DefaultLabelPrefix = "com.containment"

// Engine wraps the Docker client with label-based resource isolation. It only
// operates on containers carrying its managed label.
type Engine struct {
	APIClient
	options EngineOptions

	managedLabelKey   string // e.g., "com.myapp.managed"
	managedLabelValue string // always "true"
}

// New connects to the Docker daemon configured by the environment and
// verifies the connection.
func New(ctx context.Context, opts EngineOptions) (*Engine, error) {
	cli, err := client.New(client.FromEnv)
	if err != nil {
		return nil, ErrDockerNotRunning(err)
	}

	engine := NewFromExisting(cli, opts)
	if err := engine.HealthCheck(ctx); err != nil {
		cli.Close()
		return nil, err
	}
	return engine, nil
}

// NewFromExisting wraps an existing API client. Used with whailtest fakes.
func NewFromExisting(api APIClient, opts EngineOptions) *Engine {
	if opts.LabelPrefix == "" {
		opts.LabelPrefix = DefaultLabelPrefix
	}
	if opts.ManagedLabel == "" {
		opts.ManagedLabel = DefaultManagedLabel
	}
	return &Engine{
		APIClient:         api,
		options:           opts,
		managedLabelKey:   opts.LabelPrefix + "." + opts.ManagedLabel,
		managedLabelValue: "true",
	}
}

// HealthCheck verifies the Docker daemon is reachable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.APIClient.Ping(ctx, client.PingOptions{}); err != nil {
		return ErrDockerNotRunning(err)
	}
	return nil
}

// Options returns the engine options.
func (e *Engine) Options() EngineOptions {
	return e.options
}

// ManagedLabelKey returns the full managed label key (e.g., "com.myapp.managed").
func (e *Engine) ManagedLabelKey() string {
	return e.managedLabelKey
}

// ManagedLabelValue returns the managed label value (always "true").
func (e *Engine) ManagedLabelValue() string {
	return e.managedLabelValue
}

// containerLabels returns labels for a container, including the managed label.
// The managed label cannot be overridden by extra.
func (e *Engine) containerLabels(extra ...map[string]string) map[string]string {
	all := append([]map[string]string{e.options.Labels}, extra...)
	all = append(all, map[string]string{e.managedLabelKey: e.managedLabelValue})
	return MergeLabels(all...)
}

// isManagedLabelPresent reports whether labels carry the managed label.
func (e *Engine) isManagedLabelPresent(labels map[string]string) bool {
	return labels[e.managedLabelKey] == e.managedLabelValue
}
