package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/shlex"
	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike10004/containment-sub001/internal/cmdutil"
	"github.com/mike10004/containment-sub001/internal/config"
	"github.com/mike10004/containment-sub001/internal/iostreams"
	"github.com/mike10004/containment-sub001/pkg/whail"
	"github.com/mike10004/containment-sub001/pkg/whail/whailtest"
)

func TestNewCmdRun(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		output     RunOptions
		wantErr    bool
		wantErrMsg string
	}{
		{
			name:   "named fixtures",
			input:  "redis pg",
			output: RunOptions{Fixtures: []string{"redis", "pg"}},
		},
		{
			name:   "all",
			input:  "--all",
			output: RunOptions{All: true, Fixtures: []string{}},
		},
		{
			name:   "metrics address",
			input:  "-a --metrics-addr 127.0.0.1:9464",
			output: RunOptions{All: true, MetricsAddr: "127.0.0.1:9464", Fixtures: []string{}},
		},
		{
			name:       "all with names",
			input:      "--all redis",
			wantErr:    true,
			wantErrMsg: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &cmdutil.Factory{}

			var gotOpts *RunOptions
			cmd := NewCmdRun(f, func(_ context.Context, opts *RunOptions) error {
				gotOpts = opts
				return nil
			})

			argv, err := shlex.Split(tt.input)
			require.NoError(t, err)
			cmd.SetArgs(argv)
			cmd.SetIn(&bytes.Buffer{})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			_, err = cmd.ExecuteC()
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, gotOpts)
			require.Equal(t, tt.output.All, gotOpts.All)
			require.Equal(t, tt.output.MetricsAddr, gotOpts.MetricsAddr)
			require.Equal(t, tt.output.Fixtures, gotOpts.Fixtures)
		})
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Fixtures = []config.Fixture{
		{Name: "redis", Image: "redis:7-alpine", Ports: []string{"6379"}},
		{Name: "pg", Image: "postgres:16", Ports: []string{"5432"}},
	}
	return cfg
}

// newFakeDaemon returns an engine whose containers all publish 6379/tcp on
// host port 32768.
func newFakeDaemon() (*whail.Engine, *whailtest.FakeAPIClient) {
	engine, fake := whailtest.NewEngine()

	var mu sync.Mutex
	n := 0
	fake.ImageInspectFn = func(context.Context, string, ...client.ImageInspectOption) (client.ImageInspectResult, error) {
		return client.ImageInspectResult{}, nil
	}
	fake.ContainerCreateFn = func(context.Context, client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return client.ContainerCreateResult{ID: fmt.Sprintf("c%d", n)}, nil
	}
	fake.ContainerStartFn = func(context.Context, string, client.ContainerStartOptions) (client.ContainerStartResult, error) {
		return client.ContainerStartResult{}, nil
	}
	fake.ContainerInspectFn = func(_ context.Context, id string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		return whailtest.WithPorts(whailtest.ManagedContainerInspect(id), map[string]string{"6379/tcp": "32768"}), nil
	}
	fake.ContainerStopFn = func(context.Context, string, client.ContainerStopOptions) (client.ContainerStopResult, error) {
		return client.ContainerStopResult{}, nil
	}
	fake.ContainerRemoveFn = func(context.Context, string, client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
		return client.ContainerRemoveResult{}, nil
	}
	return engine, fake
}

func testOptions(engine *whail.Engine) (*RunOptions, *iostreams.TestIOStreams, *int) {
	tio := iostreams.NewTestIOStreams()
	waits := 0
	return &RunOptions{
		IOStreams: tio.IOStreams,
		Config:    func() (*config.Config, error) { return testConfig(), nil },
		Engine:    func(context.Context) (*whail.Engine, error) { return engine, nil },
		Wait: func(context.Context) error {
			waits++
			return nil
		},
	}, tio, &waits
}

func TestRunRun_StartsAndTearsDown(t *testing.T) {
	engine, fake := newFakeDaemon()
	opts, tio, waits := testOptions(engine)
	opts.Fixtures = []string{"redis"}

	require.NoError(t, runRun(context.Background(), opts))

	assert.Equal(t, 1, *waits)
	assert.Equal(t,
		"FIXTURE  CONTAINER  PORTS\n"+
			"redis    c1         6379/tcp->127.0.0.1:32768\n",
		tio.OutBuf.String())
	assert.Contains(t, tio.ErrBuf.String(), "Press Ctrl+C")
	whailtest.AssertCalledN(t, fake, "ContainerCreate", 1)
	whailtest.AssertCalledN(t, fake, "ContainerStop", 1)
	whailtest.AssertCalledN(t, fake, "ContainerRemove", 1)
}

func TestRunRun_All(t *testing.T) {
	engine, fake := newFakeDaemon()
	opts, tio, _ := testOptions(engine)
	opts.All = true

	require.NoError(t, runRun(context.Background(), opts))

	out := tio.OutBuf.String()
	assert.Contains(t, out, "redis")
	assert.Contains(t, out, "pg")
	whailtest.AssertCalledN(t, fake, "ContainerCreate", 2)
	whailtest.AssertCalledN(t, fake, "ContainerStop", 2)
}

func TestRunRun_StartFailureTearsDown(t *testing.T) {
	engine, fake := newFakeDaemon()
	fake.ContainerStartFn = func(context.Context, string, client.ContainerStartOptions) (client.ContainerStartResult, error) {
		return client.ContainerStartResult{}, errors.New("port is already allocated")
	}
	opts, tio, waits := testOptions(engine)
	opts.Fixtures = []string{"redis"}

	err := runRun(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixture redis")
	assert.Contains(t, err.Error(), "port is already allocated")
	assert.Zero(t, *waits)
	assert.Empty(t, tio.OutBuf.String())
	// The created container is discarded.
	whailtest.AssertCalledN(t, fake, "ContainerRemove", 1)
	whailtest.AssertNotCalled(t, fake, "ContainerStop")
}

func TestRunRun_UnknownFixture(t *testing.T) {
	engine, fake := newFakeDaemon()
	opts, _, _ := testOptions(engine)
	opts.Fixtures = []string{"mysql"}

	err := runRun(context.Background(), opts)
	var flagErr *cmdutil.FlagError
	require.ErrorAs(t, err, &flagErr)
	assert.Contains(t, err.Error(), `unknown fixture "mysql"`)
	whailtest.AssertNotCalled(t, fake, "Ping")
}

func TestRunRun_EngineError(t *testing.T) {
	opts, _, _ := testOptions(nil)
	opts.Fixtures = []string{"redis"}
	opts.Engine = func(context.Context) (*whail.Engine, error) {
		return nil, whail.ErrDockerNotRunning(errors.New("no socket"))
	}

	err := runRun(context.Background(), opts)
	assert.ErrorContains(t, err, "connecting to Docker")
}

func TestRunRun_MetricsListenError(t *testing.T) {
	engine, _ := newFakeDaemon()
	opts, _, _ := testOptions(engine)
	opts.Fixtures = []string{"redis"}
	opts.MetricsAddr = "not-an-address"

	err := runRun(context.Background(), opts)
	assert.ErrorContains(t, err, "serving metrics")
}
