package dockerdriver_test

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike10004/containment-sub001/pkg/dockerdriver"
	"github.com/mike10004/containment-sub001/pkg/lifecycle"
	"github.com/mike10004/containment-sub001/pkg/lifecycle/lifecycletest"
	"github.com/mike10004/containment-sub001/pkg/whail/whailtest"
)

// daemon wires a fake that can create, start, stop and remove one
// container publishing 6379/tcp on host port 32768.
type daemon struct {
	fake *whailtest.FakeAPIClient

	mu      sync.Mutex
	created client.ContainerCreateOptions
	removed []client.ContainerRemoveOptions
	stopped []client.ContainerStopOptions
	copied  map[string][]byte
	copyDir string
}

func newDaemon(t *testing.T) (*daemon, *dockerdriver.Factory) {
	t.Helper()
	engine, fake := whailtest.NewEngine()
	d := &daemon{fake: fake, copied: map[string][]byte{}}

	fake.ImageInspectFn = func(context.Context, string, ...client.ImageInspectOption) (client.ImageInspectResult, error) {
		return client.ImageInspectResult{}, nil
	}
	fake.ContainerCreateFn = func(_ context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		d.mu.Lock()
		d.created = opts
		d.mu.Unlock()
		return client.ContainerCreateResult{ID: "c1"}, nil
	}
	fake.ContainerStartFn = func(context.Context, string, client.ContainerStartOptions) (client.ContainerStartResult, error) {
		return client.ContainerStartResult{}, nil
	}
	fake.ContainerInspectFn = func(_ context.Context, id string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		return whailtest.WithPorts(whailtest.ManagedContainerInspect(id), map[string]string{"6379/tcp": "32768"}), nil
	}
	fake.ContainerStopFn = func(_ context.Context, _ string, opts client.ContainerStopOptions) (client.ContainerStopResult, error) {
		d.mu.Lock()
		d.stopped = append(d.stopped, opts)
		d.mu.Unlock()
		return client.ContainerStopResult{}, nil
	}
	fake.ContainerRemoveFn = func(_ context.Context, _ string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
		d.mu.Lock()
		d.removed = append(d.removed, opts)
		d.mu.Unlock()
		return client.ContainerRemoveResult{}, nil
	}
	fake.CopyToContainerFn = func(_ context.Context, _ string, opts client.CopyToContainerOptions) (client.CopyToContainerResult, error) {
		tr := tar.NewReader(opts.Content)
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return client.CopyToContainerResult{}, err
			}
			body, err := io.ReadAll(tr)
			if err != nil {
				return client.CopyToContainerResult{}, err
			}
			d.mu.Lock()
			d.copyDir = opts.DestinationPath
			d.copied[hdr.Name] = body
			d.mu.Unlock()
		}
		return client.CopyToContainerResult{}, nil
	}

	return d, dockerdriver.NewFactory(dockerdriver.WithEngine(engine))
}

func redisParams() *dockerdriver.Params {
	return &dockerdriver.Params{
		Name:  "redis",
		Image: "redis:7-alpine",
		Cmd:   []string{"redis-server", "--save", ""},
		Env:   []string{"TZ=UTC"},
		Ports: []string{"6379"},
	}
}

func TestFactory_ProvisionAndTeardown(t *testing.T) {
	d, factory := newDaemon(t)
	ctx := context.Background()

	params := redisParams()
	params.Memory = "256m"
	params.StopTimeout = 3 * time.Second
	def, err := factory.Definition(params)
	require.NoError(t, err)
	assert.Equal(t, "redis", def.Name())

	res := lifecycle.NewLazy(def)
	c, err := res.Require(ctx)
	require.NoError(t, err)

	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "c1", c.Name)
	assert.Equal(t, dockerdriver.DefaultHost, c.Host)
	port, err := c.MappedPort("6379")
	require.NoError(t, err)
	assert.Equal(t, "32768", port)
	addr, err := c.HostAddress("6379/tcp")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:32768", addr)
	_, err = c.MappedPort("80")
	assert.Error(t, err)

	cfg := d.created.Config
	require.NotNil(t, cfg)
	assert.Equal(t, "redis:7-alpine", cfg.Image)
	assert.Equal(t, []string{"redis-server", "--save", ""}, cfg.Cmd)
	assert.Equal(t, []string{"TZ=UTC"}, cfg.Env)
	assert.Equal(t, "true", cfg.Labels[whailtest.ManagedLabelKey])
	assert.Equal(t, "redis", cfg.Labels[whailtest.TestLabelPrefix+"."+dockerdriver.FixtureLabel])
	assert.Len(t, cfg.ExposedPorts, 1)
	assert.Regexp(t, `^containment-[0-9a-f]{8}$`, d.created.Name)
	require.NotNil(t, d.created.HostConfig)
	assert.Equal(t, int64(256*1024*1024), d.created.HostConfig.Memory)
	assert.Len(t, d.created.HostConfig.PortBindings, 1)

	require.NoError(t, res.FinishLifecycle(ctx))
	require.Len(t, d.stopped, 1)
	require.NotNil(t, d.stopped[0].Timeout)
	assert.Equal(t, 3, *d.stopped[0].Timeout)
	require.Len(t, d.removed, 1)
	assert.True(t, d.removed[0].Force)
	assert.Equal(t, lifecycle.StateUnprovisioned, res.State())
}

func TestFactory_ContainerName(t *testing.T) {
	d, factory := newDaemon(t)
	params := redisParams()
	params.ContainerName = "it-redis"
	def, err := factory.Definition(params)
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "it-redis", d.created.Name)
}

func TestFactory_DefinitionRejectsNilParams(t *testing.T) {
	_, factory := newDaemon(t)
	_, err := factory.Definition(nil)
	assert.ErrorIs(t, err, lifecycle.ErrNilParams)
}

func TestDriver_PullPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    dockerdriver.PullPolicy
		present   bool
		wantPull  bool
		wantError bool
	}{
		{"missing and present", dockerdriver.PullMissing, true, false, false},
		{"missing and absent", dockerdriver.PullMissing, false, true, false},
		{"default and absent", "", false, true, false},
		{"always", dockerdriver.PullAlways, true, true, false},
		{"never and present", dockerdriver.PullNever, true, false, false},
		{"never and absent", dockerdriver.PullNever, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, factory := newDaemon(t)
			d.fake.ImageInspectFn = func(context.Context, string, ...client.ImageInspectOption) (client.ImageInspectResult, error) {
				if tt.present {
					return client.ImageInspectResult{}, nil
				}
				return client.ImageInspectResult{}, cerrdefs.ErrNotFound
			}
			d.fake.ImagePullFn = func(context.Context, string, client.ImagePullOptions) (client.ImagePullResponse, error) {
				return whailtest.PullResponse(`{"status":"Downloaded"}`), nil
			}

			params := redisParams()
			params.PullPolicy = tt.policy
			def, err := factory.Definition(params)
			require.NoError(t, err)

			rec := &lifecycletest.Recorder{}
			_, err = lifecycle.NewLazy(def, lifecycle.WithListener(rec)).Require(context.Background())
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, lifecycle.ErrCreateFailed)
				whailtest.AssertNotCalled(t, d.fake, "ContainerCreate")
			} else {
				require.NoError(t, err)
			}

			if tt.wantPull {
				whailtest.AssertCalledN(t, d.fake, "ImagePull", 1)
				assert.Equal(t, 1, rec.Count(lifecycle.PhaseWarning))
			} else {
				whailtest.AssertNotCalled(t, d.fake, "ImagePull")
				assert.Zero(t, rec.Count(lifecycle.PhaseWarning))
			}
		})
	}
}

func TestDriver_ForwardsDaemonWarnings(t *testing.T) {
	d, factory := newDaemon(t)
	d.fake.ContainerCreateFn = func(context.Context, client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		return client.ContainerCreateResult{ID: "c1", Warnings: []string{"memory limit ignored"}}, nil
	}
	def, err := factory.Definition(redisParams())
	require.NoError(t, err)

	rec := &lifecycletest.Recorder{}
	_, err = lifecycle.NewLazy(def, lifecycle.WithListener(rec)).Require(context.Background())
	require.NoError(t, err)

	var msgs []string
	for _, e := range rec.Events() {
		if e.Phase == lifecycle.PhaseWarning {
			msgs = append(msgs, e.Message)
		}
	}
	assert.Equal(t, []string{"memory limit ignored"}, msgs)
}

func TestDriver_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *dockerdriver.Params)
		errMsg string
	}{
		{"no image", func(p *dockerdriver.Params) { p.Image = "" }, "has no image"},
		{"bad port", func(p *dockerdriver.Params) { p.Ports = []string{"abc"} }, "invalid port mapping"},
		{"bad memory", func(p *dockerdriver.Params) { p.Memory = "lots" }, "invalid memory limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, factory := newDaemon(t)
			params := redisParams()
			tt.mutate(params)
			def, err := factory.Definition(params)
			require.NoError(t, err)

			_, err = lifecycle.NewLazy(def).Require(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, lifecycle.ErrCreateFailed)
			assert.ErrorContains(t, err, tt.errMsg)
			whailtest.AssertNotCalled(t, d.fake, "ContainerCreate")
		})
	}
}

func TestFactory_UnreachableDaemon(t *testing.T) {
	d, factory := newDaemon(t)
	d.fake.PingFn = func(context.Context, client.PingOptions) (client.PingResult, error) {
		return client.PingResult{}, errors.New("connection refused")
	}
	def, err := factory.Definition(redisParams())
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrDriverInstantiationFailed)
	assert.ErrorContains(t, err, "connection refused")
}

func TestCopyFile(t *testing.T) {
	d, factory := newDaemon(t)
	def, err := factory.Definition(redisParams(),
		dockerdriver.CopyFile("/usr/local/etc/redis/redis.conf", []byte("maxmemory 64mb\n"), 0o600),
	)
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/etc/redis", d.copyDir)
	assert.Equal(t, map[string][]byte{"redis.conf": []byte("maxmemory 64mb\n")}, d.copied)
	assert.Equal(t, []string{"ImageInspect", "ContainerCreate", "ContainerInspect", "CopyToContainer", "ContainerInspect", "ContainerStart", "ContainerInspect"},
		filterCalls(d.fake.CallsSnapshot(), "Ping"))
}

func TestCopyHostFile(t *testing.T) {
	d, factory := newDaemon(t)
	src := filepath.Join(t.TempDir(), "init.sql")
	require.NoError(t, os.WriteFile(src, []byte("CREATE TABLE t (id int);"), 0o640))

	def, err := factory.Definition(redisParams(), dockerdriver.CopyHostFile(src, "/docker-entrypoint-initdb.d/init.sql", 0))
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/docker-entrypoint-initdb.d", d.copyDir)
	assert.Equal(t, []byte("CREATE TABLE t (id int);"), d.copied["init.sql"])
}

func TestCopyFile_RelativeTarget(t *testing.T) {
	d, factory := newDaemon(t)
	def, err := factory.Definition(redisParams(), dockerdriver.CopyFile("redis.conf", nil, 0))
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrPreStartActionFailed)

	var pe *lifecycle.ProvisionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "copy redis.conf", pe.Action)
	whailtest.AssertNotCalled(t, d.fake, "CopyToContainer")
}

func TestAction_FailureDiscardsContainer(t *testing.T) {
	d, factory := newDaemon(t)
	boom := errors.New("seed failed")
	def, err := factory.Definition(redisParams(), dockerdriver.Action("seed", func(_ context.Context, c *dockerdriver.Created) error {
		assert.Equal(t, "c1", c.ID())
		assert.Equal(t, "redis", c.Params().Name)
		return boom
	}))
	require.NoError(t, err)

	_, err = lifecycle.NewLazy(def).Require(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	whailtest.AssertNotCalled(t, d.fake, "ContainerStart")
	require.Len(t, d.removed, 1)
	assert.True(t, d.removed[0].Force)
}

func TestContainer_CloseIgnoresMissingContainer(t *testing.T) {
	d, factory := newDaemon(t)
	def, err := factory.Definition(redisParams())
	require.NoError(t, err)
	res := lifecycle.NewLazy(def)
	c, err := res.Require(context.Background())
	require.NoError(t, err)

	d.fake.ContainerInspectFn = func(context.Context, string, client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		return client.ContainerInspectResult{}, cerrdefs.ErrNotFound
	}
	assert.NoError(t, c.Close(context.Background()))
	whailtest.AssertNotCalled(t, d.fake, "ContainerStop")
	whailtest.AssertNotCalled(t, d.fake, "ContainerRemove")
}

func TestContainer_CloseReportsRemoveFailure(t *testing.T) {
	d, factory := newDaemon(t)
	def, err := factory.Definition(redisParams())
	require.NoError(t, err)

	rec := &lifecycletest.Recorder{}
	res := lifecycle.NewLazy(def, lifecycle.WithListener(rec))
	_, err = res.Require(context.Background())
	require.NoError(t, err)

	d.fake.ContainerRemoveFn = func(context.Context, string, client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
		return client.ContainerRemoveResult{}, errors.New("device busy")
	}
	require.NoError(t, res.FinishLifecycle(context.Background()))
	assert.Equal(t, 1, rec.Count(lifecycle.PhaseTeardownFailed))
	assert.Zero(t, rec.Count(lifecycle.PhaseStopped))
}

func TestContainer_LogsAndExec(t *testing.T) {
	d, factory := newDaemon(t)
	d.fake.ContainerLogsFn = func(context.Context, string, client.ContainerLogsOptions) (client.ContainerLogsResult, error) {
		return whailtest.LogsResponse("Ready to accept connections\n"), nil
	}
	d.fake.SetupExecOutput("PONG\n", "", 0)

	def, err := factory.Definition(redisParams())
	require.NoError(t, err)
	c, err := lifecycle.NewLazy(def).Require(context.Background())
	require.NoError(t, err)

	stdout, stderr, err := c.Logs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ready to accept connections\n", stdout)
	assert.Empty(t, stderr)

	result, err := c.Exec(context.Background(), "redis-cli", "ping")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "PONG\n", result.Stdout)
}

func TestRegistry_SharesContainerByParams(t *testing.T) {
	d, factory := newDaemon(t)
	reg := lifecycle.NewRegistry[*dockerdriver.Params, *dockerdriver.Container]()
	ctx := context.Background()

	defA, err := factory.Definition(redisParams())
	require.NoError(t, err)
	defB, err := factory.Definition(redisParams())
	require.NoError(t, err)

	a, err := reg.Acquire(ctx, defA)
	require.NoError(t, err)
	b, err := reg.Acquire(ctx, defB)
	require.NoError(t, err)
	assert.Same(t, a, b)
	whailtest.AssertCalledN(t, d.fake, "ContainerCreate", 1)

	require.NoError(t, reg.Release(ctx, defA))
	whailtest.AssertNotCalled(t, d.fake, "ContainerStop")
	require.NoError(t, reg.Release(ctx, defB))
	whailtest.AssertCalledN(t, d.fake, "ContainerStop", 1)
}

func filterCalls(calls []string, drop string) []string {
	var out []string
	for _, c := range calls {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
