package dockerdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/rs/zerolog"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// Container is a running fixture container.
type Container struct {
	ID   string
	Name string
	Host string

	// Ports maps container ports ("6379/tcp") to published host ports.
	Ports map[string]string

	engine      *whail.Engine
	stopTimeout time.Duration
	log         zerolog.Logger
}

var _ lifecycle.Running = (*Container)(nil)

// MappedPort returns the host port published for a container port. spec
// defaults to tcp, so "6379" and "6379/tcp" are equivalent.
func (c *Container) MappedPort(spec string) (string, error) {
	if p, ok := c.Ports[normalizePort(spec)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("container %s does not publish port %s", c.Name, spec)
}

// HostAddress returns host:port for a published container port.
func (c *Container) HostAddress(spec string) (string, error) {
	p, err := c.MappedPort(spec)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(c.Host, p), nil
}

// Logs returns the container's stdout and stderr so far.
func (c *Container) Logs(ctx context.Context) (stdout, stderr string, err error) {
	rc, err := c.engine.ContainerLogs(ctx, c.ID)
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	var out, errOut bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &errOut, rc); err != nil {
		return "", "", whail.ErrContainerLogsFailed(c.ID, err)
	}
	return out.String(), errOut.String(), nil
}

// Exec runs cmd in the container and waits for it to exit.
func (c *Container) Exec(ctx context.Context, cmd ...string) (whail.ExecResult, error) {
	return c.engine.Exec(ctx, c.ID, cmd)
}

// Close stops the container within its stop timeout and then force-removes
// it. A container that is already gone is not an error.
func (c *Container) Close(ctx context.Context) error {
	var timeout *time.Duration
	if c.stopTimeout > 0 {
		timeout = &c.stopTimeout
	}

	stopErr := c.engine.ContainerStop(ctx, c.ID, timeout)
	if whail.IsNotFound(stopErr) {
		return nil
	}
	if stopErr != nil {
		c.log.Debug().Err(stopErr).Str("container_id", c.ID).Msg("stop failed, forcing removal")
	}

	removeErr := c.engine.ContainerRemove(ctx, c.ID, true)
	if whail.IsNotFound(removeErr) {
		removeErr = nil
	}
	if removeErr != nil {
		return errors.Join(stopErr, removeErr)
	}
	return nil
}
