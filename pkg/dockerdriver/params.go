// Package dockerdriver provisions lifecycle resources as Docker containers
// through the whail engine.
//
//	factory := dockerdriver.NewFactory()
//	def, err := factory.Definition(&dockerdriver.Params{
//		Name:  "redis",
//		Image: "redis:7-alpine",
//		Ports: []string{"6379"},
//	})
//	redis := lifecycle.NewLazy(def)
//	c, err := redis.Require(ctx)
//	addr, err := c.HostAddress("6379")
package dockerdriver

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// PullPolicy controls when Create pulls the image.
type PullPolicy string

const (
	PullMissing PullPolicy = "missing" // pull only when the image is absent
	PullAlways  PullPolicy = "always"
	PullNever   PullPolicy = "never"
)

// ParsePullPolicy validates s. The empty string means PullMissing.
func ParsePullPolicy(s string) (PullPolicy, error) {
	switch p := PullPolicy(strings.ToLower(s)); p {
	case "":
		return PullMissing, nil
	case PullMissing, PullAlways, PullNever:
		return p, nil
	}
	return "", fmt.Errorf("invalid pull policy %q (want missing, always or never)", s)
}

// Params describe a fixture container.
type Params struct {
	// Name identifies the fixture. It is recorded as a label and used as the
	// resource name in lifecycle events.
	Name string

	// ContainerName is the Docker container name. Empty generates
	// "containment-<id>".
	ContainerName string

	Image  string
	Cmd    []string
	Env    []string
	Labels map[string]string

	// Ports are publish specs accepted by docker run -p, such as "6379",
	// "8080:80" or "127.0.0.1::5432/tcp". A missing host port is assigned by
	// the daemon.
	Ports []string

	// Memory is a human readable limit such as "256m". Empty means unlimited.
	Memory string

	PullPolicy  PullPolicy
	StopTimeout time.Duration
}

// Key identifies equivalent fixtures for registry sharing.
func (p *Params) Key() string {
	ports := slices.Clone(p.Ports)
	slices.Sort(ports)
	env := slices.Clone(p.Env)
	slices.Sort(env)
	return strings.Join([]string{
		p.Name,
		p.Image,
		strings.Join(p.Cmd, " "),
		strings.Join(ports, ","),
		strings.Join(env, ","),
	}, "|")
}

// resourceName returns the lifecycle resource name for p.
func (p *Params) resourceName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Image
}
