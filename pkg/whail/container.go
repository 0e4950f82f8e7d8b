package whail

import (
	"context"
	"io"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
)

// ContainerCreate creates a new container with managed labels applied.
// Engine labels, then extra, are merged into the container labels; the
// managed label always wins.
func (e *Engine) ContainerCreate(ctx context.Context, opts client.ContainerCreateOptions, extra ...map[string]string) (client.ContainerCreateResult, error) {
	cfg := container.Config{}
	if opts.Config != nil {
		cfg = *opts.Config
	}
	cfg.Labels = e.containerLabels(append([]map[string]string{cfg.Labels}, extra...)...)
	opts.Config = &cfg

	result, err := e.APIClient.ContainerCreate(ctx, opts)
	if err != nil {
		return client.ContainerCreateResult{}, ErrContainerCreateFailed(cfg.Image, err)
	}
	return result, nil
}

// IsContainerManaged reports whether the container exists and carries the
// managed label. A missing container is not an error.
func (e *Engine) IsContainerManaged(ctx context.Context, containerID string) (bool, error) {
	info, err := e.APIClient.ContainerInspect(ctx, containerID, client.ContainerInspectOptions{})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, ErrContainerInspectFailed(containerID, err)
	}
	if info.Container.Config == nil {
		return false, nil
	}
	return e.isManagedLabelPresent(info.Container.Config.Labels), nil
}

// requireManaged returns ErrContainerNotFound unless the container is managed.
func (e *Engine) requireManaged(ctx context.Context, containerID string) error {
	managed, err := e.IsContainerManaged(ctx, containerID)
	if err != nil {
		return err
	}
	if !managed {
		return ErrContainerNotFound(containerID)
	}
	return nil
}

// ContainerStart starts a managed container.
func (e *Engine) ContainerStart(ctx context.Context, containerID string) error {
	if err := e.requireManaged(ctx, containerID); err != nil {
		return err
	}
	if _, err := e.APIClient.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return ErrContainerStartFailed(containerID, err)
	}
	return nil
}

// ContainerStop stops a managed container. A nil timeout uses the daemon
// default.
func (e *Engine) ContainerStop(ctx context.Context, containerID string, timeout *time.Duration) error {
	if err := e.requireManaged(ctx, containerID); err != nil {
		return err
	}
	opts := client.ContainerStopOptions{}
	if timeout != nil {
		secs := int(timeout.Seconds())
		opts.Timeout = &secs
	}
	if _, err := e.APIClient.ContainerStop(ctx, containerID, opts); err != nil {
		return ErrContainerStopFailed(containerID, err)
	}
	return nil
}

// ContainerRemove removes a managed container and its anonymous volumes.
func (e *Engine) ContainerRemove(ctx context.Context, containerID string, force bool) error {
	if err := e.requireManaged(ctx, containerID); err != nil {
		return err
	}
	_, err := e.APIClient.ContainerRemove(ctx, containerID, client.ContainerRemoveOptions{
		Force:         force,
		RemoveVolumes: true,
	})
	if err != nil {
		return ErrContainerRemoveFailed(containerID, err)
	}
	return nil
}

// ContainerInspect inspects a managed container.
func (e *Engine) ContainerInspect(ctx context.Context, containerID string) (client.ContainerInspectResult, error) {
	info, err := e.APIClient.ContainerInspect(ctx, containerID, client.ContainerInspectOptions{})
	if err != nil {
		if IsNotFound(err) {
			return client.ContainerInspectResult{}, ErrContainerNotFound(containerID)
		}
		return client.ContainerInspectResult{}, ErrContainerInspectFailed(containerID, err)
	}
	if info.Container.Config == nil || !e.isManagedLabelPresent(info.Container.Config.Labels) {
		return client.ContainerInspectResult{}, ErrContainerNotFound(containerID)
	}
	return info, nil
}

// ListManagedContainers lists managed containers, including stopped ones,
// that also match every label in extra.
func (e *Engine) ListManagedContainers(ctx context.Context, extra map[string]string) ([]container.Summary, error) {
	filter := LabelFilterMultiple(MergeLabels(extra, map[string]string{e.managedLabelKey: e.managedLabelValue}))
	result, err := e.APIClient.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return nil, ErrContainerListFailed(err)
	}
	return result.Items, nil
}

// ContainerLogs returns the multiplexed stdout and stderr of a managed
// container. The caller closes the reader.
func (e *Engine) ContainerLogs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	if err := e.requireManaged(ctx, containerID); err != nil {
		return nil, err
	}
	logs, err := e.APIClient.ContainerLogs(ctx, containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, ErrContainerLogsFailed(containerID, err)
	}
	return logs, nil
}

// CopyToContainer extracts the tar archive content into destPath of a
// managed container.
func (e *Engine) CopyToContainer(ctx context.Context, containerID, destPath string, content io.Reader) error {
	if err := e.requireManaged(ctx, containerID); err != nil {
		return err
	}
	_, err := e.APIClient.CopyToContainer(ctx, containerID, client.CopyToContainerOptions{
		DestinationPath: destPath,
		Content:         content,
	})
	if err != nil {
		return ErrCopyToContainerFailed(containerID, err)
	}
	return nil
}
