package tcdriver_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
	"github.com/mike10004/containment-sub001/pkg/tcdriver"
)

// fakeContainer implements the testcontainers.Container methods the driver
// calls. The embedded interface is nil.
type fakeContainer struct {
	testcontainers.Container

	mu         sync.Mutex
	calls      []string
	startErr   error
	copied     map[string][]byte
	terminated int
}

func (c *fakeContainer) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeContainer) GetContainerID() string { return "tc-1" }

func (c *fakeContainer) Start(context.Context) error {
	c.record("Start")
	return c.startErr
}

func (c *fakeContainer) Host(context.Context) (string, error) { return "localhost", nil }

func (c *fakeContainer) MappedPort(_ context.Context, p nat.Port) (nat.Port, error) {
	if p == "6379/tcp" {
		return "49153/tcp", nil
	}
	return "", errors.New("port not found")
}

func (c *fakeContainer) CopyToContainer(_ context.Context, content []byte, path string, _ int64) error {
	c.record("CopyToContainer")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.copied == nil {
		c.copied = map[string][]byte{}
	}
	c.copied[path] = content
	return nil
}

func (c *fakeContainer) Terminate(context.Context) error {
	c.record("Terminate")
	c.mu.Lock()
	c.terminated++
	c.mu.Unlock()
	return nil
}

type fakeProvider struct {
	healthErr error
	container *fakeContainer
	requests  []testcontainers.ContainerRequest
	closed    bool
}

func (p *fakeProvider) Health(context.Context) error { return p.healthErr }

func (p *fakeProvider) CreateContainer(_ context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, error) {
	p.requests = append(p.requests, req)
	return p.container, nil
}

func (p *fakeProvider) Close() error {
	p.closed = true
	return nil
}

func newFactory(p *fakeProvider) *tcdriver.Factory {
	return tcdriver.NewFactory(tcdriver.WithProvider(func() (tcdriver.Provider, error) { return p, nil }))
}

func redisParams() *tcdriver.Params {
	return &tcdriver.Params{
		Name: "redis",
		Request: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379"},
		},
	}
}

func TestFactory_ProvisionAndTerminate(t *testing.T) {
	provider := &fakeProvider{container: &fakeContainer{}}
	factory := newFactory(provider)
	def, err := factory.Definition(redisParams(), tcdriver.CopyFile("/etc/redis.conf", []byte("save \"\""), 0o644))
	require.NoError(t, err)

	res := lifecycle.NewLazy(def)
	c, err := res.Require(context.Background())
	require.NoError(t, err)

	addr, err := c.HostAddress("6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:49153", addr)
	assert.Equal(t, []string{"CopyToContainer", "Start"}, provider.container.calls)
	assert.Equal(t, []byte("save \"\""), provider.container.copied["/etc/redis.conf"])
	require.Len(t, provider.requests, 1)
	assert.Equal(t, "redis:7-alpine", provider.requests[0].Image)

	require.NoError(t, res.FinishLifecycle(context.Background()))
	assert.Equal(t, 1, provider.container.terminated)

	require.NoError(t, factory.Close())
	assert.True(t, provider.closed)
}

func TestFactory_UnhealthyProvider(t *testing.T) {
	provider := &fakeProvider{healthErr: errors.New("no docker"), container: &fakeContainer{}}
	def, err := newFactory(provider).Definition(redisParams())
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	assert.ErrorIs(t, err, lifecycle.ErrDriverInstantiationFailed)
	assert.Empty(t, provider.requests)
}

func TestCreated_StartFailureDiscards(t *testing.T) {
	provider := &fakeProvider{container: &fakeContainer{startErr: errors.New("wait strategy timed out")}}
	def, err := newFactory(provider).Definition(redisParams())
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrStartFailed)
	assert.Equal(t, 1, provider.container.terminated)
}

func TestParams_Key(t *testing.T) {
	a := redisParams()
	a.Request.Env = map[string]string{"B": "2", "A": "1"}
	b := redisParams()
	b.Request.Env = map[string]string{"A": "1", "B": "2"}
	assert.Equal(t, a.Key(), b.Key())

	c := redisParams()
	c.Request.Image = "redis:6"
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestContainer_MappedPortUnknown(t *testing.T) {
	c := &tcdriver.Container{Host: "localhost", Ports: map[string]string{"6379/tcp": "1"}}
	_, err := c.MappedPort("80")
	assert.Error(t, err)
}
