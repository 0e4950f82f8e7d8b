package dockerdriver

import (
	"context"
	"fmt"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
	"github.com/rs/zerolog"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// FixtureLabel is the label suffix recording Params.Name.
const FixtureLabel = "fixture"

// Driver creates fixture containers on one engine.
type Driver struct {
	engine *whail.Engine
	host   string
	log    zerolog.Logger
}

var _ lifecycle.Driver[*Params, *Container] = (*Driver)(nil)

// Create ensures the image is available and creates, but does not start, the
// container. Daemon warnings and pulls are reported through warn.
func (d *Driver) Create(ctx context.Context, p *Params, warn lifecycle.WarningListener) (lifecycle.Startable[*Container], error) {
	if p.Image == "" {
		return nil, fmt.Errorf("fixture %q has no image", p.Name)
	}
	if err := d.ensureImage(ctx, p, warn); err != nil {
		return nil, err
	}

	exposed, bindings, err := parsePorts(p.Ports)
	if err != nil {
		return nil, err
	}
	hostCfg := &container.HostConfig{PortBindings: bindings}
	if p.Memory != "" {
		mem, err := units.RAMInBytes(p.Memory)
		if err != nil {
			return nil, fmt.Errorf("invalid memory limit %q: %w", p.Memory, err)
		}
		hostCfg.Memory = mem
	}

	name := p.ContainerName
	if name == "" {
		name = "containment-" + uuid.New().String()[:8]
	}

	extra := map[string]string{}
	if p.Name != "" {
		extra[d.engine.Options().LabelPrefix+"."+FixtureLabel] = p.Name
	}

	result, err := d.engine.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name: name,
		Config: &container.Config{
			Image:        p.Image,
			Cmd:          p.Cmd,
			Env:          p.Env,
			Labels:       p.Labels,
			ExposedPorts: exposed,
		},
		HostConfig: hostCfg,
	}, extra)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		warn(w)
	}

	d.log.Debug().
		Str("fixture", p.Name).
		Str("container_id", result.ID).
		Str("container_name", name).
		Msg("created fixture container")

	return &Created{driver: d, params: p, id: result.ID, name: name}, nil
}

// ensureImage applies the pull policy.
func (d *Driver) ensureImage(ctx context.Context, p *Params, warn lifecycle.WarningListener) error {
	policy := p.PullPolicy
	if policy == "" {
		policy = PullMissing
	}
	if policy == PullAlways {
		warn("pulling image " + p.Image)
		return d.engine.ImagePull(ctx, p.Image)
	}

	exists, err := d.engine.ImageExists(ctx, p.Image)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if policy == PullNever {
		return whail.ErrImageNotFound(p.Image, nil)
	}
	warn("pulling image " + p.Image)
	return d.engine.ImagePull(ctx, p.Image)
}
