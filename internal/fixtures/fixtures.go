// Package fixtures turns configured fixtures into lifecycle definitions for
// the Docker driver.
package fixtures

import (
	"fmt"

	"github.com/mike10004/containment-sub001/internal/config"
	"github.com/mike10004/containment-sub001/pkg/dockerdriver"
	"github.com/mike10004/containment-sub001/pkg/lifecycle"
)

// Definition is a Docker fixture definition.
type Definition = lifecycle.Definition[*dockerdriver.Params, *dockerdriver.Container]

// Params converts a fixture into driver parameters. Fixture settings
// override the docker section.
func Params(f *config.Fixture, docker config.DockerConfig) (*dockerdriver.Params, error) {
	argv, err := f.Argv()
	if err != nil {
		return nil, err
	}

	policy := f.PullPolicy
	if policy == "" {
		policy = docker.PullPolicy
	}
	pull, err := dockerdriver.ParsePullPolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.Name, err)
	}

	stop := f.StopTimeout
	if stop == 0 {
		stop = docker.StopTimeout
	}

	return &dockerdriver.Params{
		Name:        f.Name,
		Image:       f.Image,
		Cmd:         argv,
		Env:         f.Env,
		Labels:      f.Labels,
		Ports:       f.Ports,
		Memory:      f.Memory,
		PullPolicy:  pull,
		StopTimeout: stop,
	}, nil
}

// Actions returns the pre-start actions of a fixture in file order.
func Actions(f *config.Fixture) []lifecycle.PreStartAction[*dockerdriver.Container] {
	actions := make([]lifecycle.PreStartAction[*dockerdriver.Container], 0, len(f.Files))
	for _, fc := range f.Files {
		actions = append(actions, dockerdriver.CopyHostFile(fc.Source, fc.Target, fc.Mode))
	}
	return actions
}

// Build creates the lifecycle definition for f.
func Build(factory *dockerdriver.Factory, f *config.Fixture, docker config.DockerConfig) (Definition, error) {
	p, err := Params(f, docker)
	if err != nil {
		return Definition{}, err
	}
	return factory.Definition(p, Actions(f)...)
}

// Select returns the named fixtures, or every fixture when all is set.
func Select(cfg *config.Config, names []string, all bool) ([]*config.Fixture, error) {
	if all {
		out := make([]*config.Fixture, len(cfg.Fixtures))
		for i := range cfg.Fixtures {
			out[i] = &cfg.Fixtures[i]
		}
		return out, nil
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no fixtures selected; name one or more of %v or pass --all", cfg.FixtureNames())
	}
	out := make([]*config.Fixture, 0, len(names))
	for _, name := range names {
		f, ok := cfg.Fixture(name)
		if !ok {
			return nil, fmt.Errorf("unknown fixture %q", name)
		}
		out = append(out, f)
	}
	return out, nil
}
