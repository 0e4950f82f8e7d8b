package whail

import (
	"bytes"
	"context"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/client"
)

// ExecResult is the captured result of a command run with Exec.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Exec runs cmd in a managed container and waits for it to finish. A non-zero
// exit code is reported in the result, not as an error.
func (e *Engine) Exec(ctx context.Context, containerID string, cmd []string) (ExecResult, error) {
	if err := e.requireManaged(ctx, containerID); err != nil {
		return ExecResult{}, err
	}

	created, err := e.APIClient.ExecCreate(ctx, containerID, client.ExecCreateOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, ErrContainerExecFailed(containerID, err)
	}

	attached, err := e.APIClient.ExecAttach(ctx, created.ID, client.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, ErrContainerExecFailed(containerID, err)
	}
	defer attached.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attached.Reader); err != nil {
		return ExecResult{}, ErrContainerExecFailed(containerID, err)
	}

	inspect, err := e.APIClient.ExecInspect(ctx, created.ID, client.ExecInspectOptions{})
	if err != nil {
		return ExecResult{}, ErrContainerExecFailed(containerID, err)
	}

	return ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
