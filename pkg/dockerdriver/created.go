package dockerdriver

import (
	"context"
	"io"
	"strings"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
)

// Created is a container that exists but has not been started. It is the
// target of pre-start actions.
type Created struct {
	driver *Driver
	params *Params
	id     string
	name   string
}

var (
	_ lifecycle.Startable[*Container] = (*Created)(nil)
	_ lifecycle.Discarder             = (*Created)(nil)
)

// ID returns the container ID.
func (c *Created) ID() string { return c.id }

// Name returns the container name.
func (c *Created) Name() string { return c.name }

// Params returns the parameters the container was created from.
func (c *Created) Params() *Params { return c.params }

// CopyArchive extracts a tar archive into dir of the container.
func (c *Created) CopyArchive(ctx context.Context, dir string, archive io.Reader) error {
	return c.driver.engine.CopyToContainer(ctx, c.id, dir, archive)
}

// Start starts the container and resolves its published ports.
func (c *Created) Start(ctx context.Context) (*Container, error) {
	e := c.driver.engine
	if err := e.ContainerStart(ctx, c.id); err != nil {
		return nil, err
	}

	info, err := e.ContainerInspect(ctx, c.id)
	if err != nil {
		return nil, err
	}

	ports := make(map[string]string)
	if ns := info.Container.NetworkSettings; ns != nil {
		for port, bindings := range ns.Ports {
			for _, b := range bindings {
				if b.HostPort != "" {
					ports[port.String()] = b.HostPort
					break
				}
			}
		}
	}

	c.driver.log.Debug().
		Str("fixture", c.params.Name).
		Str("container_id", c.id).
		Interface("ports", ports).
		Msg("started fixture container")

	name := strings.TrimPrefix(info.Container.Name, "/")
	if name == "" {
		name = c.name
	}

	return &Container{
		ID:          c.id,
		Name:        name,
		Host:        c.driver.host,
		Ports:       ports,
		engine:      e,
		stopTimeout: c.params.StopTimeout,
		log:         c.driver.log,
	}, nil
}

// Discard force-removes the unstarted container.
func (c *Created) Discard(ctx context.Context) error {
	return c.driver.engine.ContainerRemove(ctx, c.id, true)
}
