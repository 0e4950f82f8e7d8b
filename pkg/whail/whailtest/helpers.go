package whailtest

import (
	"bytes"
	"context"
	"io"
	"net"
	"slices"
	"strings"
	"testing"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"

	"github.com/mike10004/containment-sub001/pkg/whail"
)

const (
	// TestLabelPrefix is the label prefix used by test engines.
	TestLabelPrefix = "com.whailtest"

	// TestManagedLabel is the managed label suffix used by test engines.
	TestManagedLabel = "managed"
)

// ManagedLabelKey is the full managed label key for test engines.
const ManagedLabelKey = TestLabelPrefix + "." + TestManagedLabel

// TestEngineOptions returns EngineOptions configured for unit testing.
func TestEngineOptions() whail.EngineOptions {
	return whail.EngineOptions{
		LabelPrefix:  TestLabelPrefix,
		ManagedLabel: TestManagedLabel,
	}
}

// NewFakeAPIClient creates a FakeAPIClient with sensible defaults: Ping
// succeeds and ContainerInspect reports a managed, running container so that
// whail's managed checks pass.
func NewFakeAPIClient() *FakeAPIClient {
	f := &FakeAPIClient{}

	f.PingFn = func(context.Context, client.PingOptions) (client.PingResult, error) {
		return client.PingResult{}, nil
	}
	f.ContainerInspectFn = func(_ context.Context, id string, _ client.ContainerInspectOptions) (client.ContainerInspectResult, error) {
		return ManagedContainerInspect(id), nil
	}
	return f
}

// NewEngine returns an engine backed by a fresh default fake.
func NewEngine() (*whail.Engine, *FakeAPIClient) {
	fake := NewFakeAPIClient()
	return whail.NewFromExisting(fake, TestEngineOptions()), fake
}

// --- Inspect result factories ---

// ManagedContainerInspect returns a running container with managed labels set.
func ManagedContainerInspect(id string) client.ContainerInspectResult {
	return client.ContainerInspectResult{
		Container: container.InspectResponse{
			ID:    id,
			Name:  "/" + id,
			State: &container.State{Running: true},
			Config: &container.Config{
				Labels: map[string]string{
					ManagedLabelKey: "true",
				},
			},
			NetworkSettings: &container.NetworkSettings{},
		},
	}
}

// UnmanagedContainerInspect returns a ContainerInspectResult without managed labels.
func UnmanagedContainerInspect(id string) client.ContainerInspectResult {
	return client.ContainerInspectResult{
		Container: container.InspectResponse{
			ID: id,
			Config: &container.Config{
				Labels: map[string]string{},
			},
		},
	}
}

// WithPorts adds host port bindings to an inspect result. ports maps a
// container port spec such as "6379/tcp" to a host port.
func WithPorts(info client.ContainerInspectResult, ports map[string]string) client.ContainerInspectResult {
	if info.Container.NetworkSettings == nil {
		info.Container.NetworkSettings = &container.NetworkSettings{}
	}
	pm := network.PortMap{}
	for spec, hostPort := range ports {
		p, err := network.ParsePort(spec)
		if err != nil {
			panic(err)
		}
		pm[p] = []network.PortBinding{{HostPort: hostPort}}
	}
	info.Container.NetworkSettings.Ports = pm
	return info
}

// --- Stream helpers ---

// SetupExecOutput configures ExecCreate, ExecAttach and ExecInspect to run a
// command that writes stdout and stderr and exits with exitCode.
func (f *FakeAPIClient) SetupExecOutput(stdout, stderr string, exitCode int) {
	f.ExecCreateFn = func(context.Context, string, client.ExecCreateOptions) (client.ExecCreateResult, error) {
		return client.ExecCreateResult{ID: "exec-1"}, nil
	}
	f.ExecAttachFn = func(context.Context, string, client.ExecAttachOptions) (client.ExecAttachResult, error) {
		clientConn, serverConn := net.Pipe()
		go func() {
			defer serverConn.Close()
			if stdout != "" {
				_, _ = stdcopy.NewStdWriter(serverConn, stdcopy.Stdout).Write([]byte(stdout))
			}
			if stderr != "" {
				_, _ = stdcopy.NewStdWriter(serverConn, stdcopy.Stderr).Write([]byte(stderr))
			}
		}()
		return client.ExecAttachResult{
			HijackedResponse: client.NewHijackedResponse(clientConn, "application/vnd.docker.multiplexed-stream"),
		}, nil
	}
	f.ExecInspectFn = func(context.Context, string, client.ExecInspectOptions) (client.ExecInspectResult, error) {
		return client.ExecInspectResult{ExitCode: exitCode}, nil
	}
}

// stream is a canned response body. The embedded interfaces are nil and
// satisfy the response types' remaining methods; only Read and Close may be
// called.
type stream struct {
	client.ImagePullResponse
	r io.Reader
}

func (s *stream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *stream) Close() error { return nil }

// PullResponse returns an image pull stream that yields body.
func PullResponse(body string) client.ImagePullResponse {
	return &stream{r: strings.NewReader(body)}
}

// logStream is a canned container log body.
type logStream struct {
	client.ContainerLogsResult
	r io.Reader
}

func (s *logStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *logStream) Close() error { return nil }

// LogsResponse returns a log stream carrying stdout framed the way the
// daemon multiplexes non-TTY output.
func LogsResponse(stdout string) client.ContainerLogsResult {
	var buf bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
	return &logStream{r: &buf}
}

// --- Assertion helpers ---

// AssertCalled fails the test if the given method was not called on the fake.
func AssertCalled(t *testing.T, fake *FakeAPIClient, method string) {
	t.Helper()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !slices.Contains(fake.Calls, method) {
		t.Errorf("expected %s to be called, but it was not; calls: %v", method, fake.Calls)
	}
}

// AssertNotCalled fails the test if the given method was called on the fake.
func AssertNotCalled(t *testing.T, fake *FakeAPIClient, method string) {
	t.Helper()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if slices.Contains(fake.Calls, method) {
		t.Errorf("expected %s to NOT be called, but it was; calls: %v", method, fake.Calls)
	}
}

// AssertCalledN fails the test if the given method was not called exactly n times.
func AssertCalledN(t *testing.T, fake *FakeAPIClient, method string, n int) {
	t.Helper()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	count := 0
	for _, c := range fake.Calls {
		if c == method {
			count++
		}
	}
	if count != n {
		t.Errorf("expected %s to be called %d times, but was called %d times; calls: %v", method, n, count, fake.Calls)
	}
}
