package whail

import (
	"fmt"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
)

// DockerError represents a user-friendly Docker error with remediation steps.
// It wraps underlying Docker SDK errors with context and actionable guidance.
type DockerError struct {
	Op        string   // Operation that failed (e.g., "connect", "create", "start")
	Err       error    // Underlying error
	Message   string   // Human-readable message
	NextSteps []string // Suggested remediation steps
}

func (e *DockerError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// FormatUserError formats the error for display to users with next steps.
func (e *DockerError) FormatUserError() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", e.Message)

	if e.Err != nil {
		fmt.Fprintf(&sb, "  Details: %s\n", e.Err.Error())
	}

	if len(e.NextSteps) > 0 {
		sb.WriteString("\nNext Steps:\n")
		for i, step := range e.NextSteps {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
		}
	}

	return sb.String()
}

// IsNotFound reports whether err is a daemon not-found error. Errors from
// ErrContainerNotFound match too.
func IsNotFound(err error) bool {
	return cerrdefs.IsNotFound(err)
}

// ErrDockerNotRunning returns an error for when Docker daemon is not accessible.
func ErrDockerNotRunning(err error) *DockerError {
	return &DockerError{
		Op:      "connect",
		Err:     err,
		Message: "Cannot connect to Docker daemon",
		NextSteps: []string{
			"Ensure Docker is installed",
			"Start Docker Desktop (macOS/Windows) or run 'sudo systemctl start docker' (Linux)",
			"Check if Docker socket is accessible: ls -la /var/run/docker.sock",
			"Check DOCKER_HOST if you use a remote daemon",
		},
	}
}

// ErrImageNotFound returns an error for when an image cannot be found locally
// and pulling is disabled.
func ErrImageNotFound(image string, err error) *DockerError {
	return &DockerError{
		Op:      "inspect",
		Err:     err,
		Message: fmt.Sprintf("Image '%s' not found", image),
		NextSteps: []string{
			"Check the image name and tag are correct",
			"Pull the image manually: docker pull " + image,
			"Set pull_policy to 'missing' or 'always'",
		},
	}
}

// ErrImagePullFailed returns an error for when pulling an image fails.
func ErrImagePullFailed(image string, err error) *DockerError {
	return &DockerError{
		Op:      "pull",
		Err:     err,
		Message: fmt.Sprintf("Failed to pull image '%s'", image),
		NextSteps: []string{
			"Check the image name and tag are correct",
			"Verify you have network access to the registry",
			"Log in to private registries: docker login",
		},
	}
}

// ErrContainerNotFound returns an error for when a container cannot be found
// or is not managed by this engine.
func ErrContainerNotFound(name string) *DockerError {
	return &DockerError{
		Op:      "find",
		Err:     cerrdefs.ErrNotFound,
		Message: fmt.Sprintf("Container '%s' not found", name),
		NextSteps: []string{
			"Check if the container was started",
			"Check all containers: docker ps -a",
		},
	}
}

// ErrContainerCreateFailed returns an error for when container creation fails.
func ErrContainerCreateFailed(image string, err error) *DockerError {
	return &DockerError{
		Op:      "create",
		Err:     err,
		Message: fmt.Sprintf("Failed to create container from image '%s'", image),
		NextSteps: []string{
			"Check the image exists: docker image ls",
			"Verify there is no container with the same name",
			"Check available disk space",
		},
	}
}

// ErrContainerStartFailed returns an error for when a container fails to start.
func ErrContainerStartFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "start",
		Err:     err,
		Message: fmt.Sprintf("Failed to start container '%s'", name),
		NextSteps: []string{
			"Check container logs: docker logs " + name,
			"Check for port conflicts",
		},
	}
}

// ErrContainerStopFailed returns an error for when stopping a container fails.
func ErrContainerStopFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "stop",
		Err:     err,
		Message: fmt.Sprintf("Failed to stop container '%s'", name),
		NextSteps: []string{
			"Try force removing: docker rm -f " + name,
		},
	}
}

// ErrContainerRemoveFailed returns an error for when container removal fails.
func ErrContainerRemoveFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "remove",
		Err:     err,
		Message: fmt.Sprintf("Failed to remove container '%s'", name),
		NextSteps: []string{
			"Try force removing: docker rm -f " + name,
			"Run 'containment prune' to remove leaked fixtures",
		},
	}
}

// ErrContainerInspectFailed returns an error for when inspecting a container fails.
func ErrContainerInspectFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "inspect",
		Err:     err,
		Message: fmt.Sprintf("Failed to inspect container '%s'", name),
	}
}

// ErrContainerListFailed returns an error for when listing containers fails.
func ErrContainerListFailed(err error) *DockerError {
	return &DockerError{
		Op:      "list",
		Err:     err,
		Message: "Failed to list containers",
	}
}

// ErrContainerLogsFailed returns an error for when reading logs fails.
func ErrContainerLogsFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "logs",
		Err:     err,
		Message: fmt.Sprintf("Failed to read logs of container '%s'", name),
	}
}

// ErrCopyToContainerFailed returns an error for when copying into a container fails.
func ErrCopyToContainerFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "copy",
		Err:     err,
		Message: fmt.Sprintf("Failed to copy files into container '%s'", name),
		NextSteps: []string{
			"Verify the destination directory exists in the image",
		},
	}
}

// ErrContainerExecFailed returns an error for when running a command in a
// container fails.
func ErrContainerExecFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "exec",
		Err:     err,
		Message: fmt.Sprintf("Failed to exec in container '%s'", name),
		NextSteps: []string{
			"Check the container is running: docker ps",
		},
	}
}
