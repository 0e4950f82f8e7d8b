package dockerdriver

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"os"
	"path"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
)

// Action adapts fn into a named pre-start action for Docker fixtures.
func Action(name string, fn func(ctx context.Context, c *Created) error) lifecycle.PreStartAction[*Container] {
	return lifecycle.NamedAction[*Container](name, lifecycle.PreStartFunc[*Container](func(ctx context.Context, s lifecycle.Startable[*Container]) error {
		c, ok := s.(*Created)
		if !ok {
			return fmt.Errorf("action %q needs a docker container, got %T", name, s)
		}
		return fn(ctx, c)
	}))
}

// CopyFile writes content to the absolute path target inside the container
// before it starts.
func CopyFile(target string, content []byte, mode os.FileMode) lifecycle.PreStartAction[*Container] {
	return Action("copy "+target, func(ctx context.Context, c *Created) error {
		if !path.IsAbs(target) {
			return fmt.Errorf("copy target %q is not an absolute path", target)
		}
		archive, err := tarFile(path.Base(target), content, mode)
		if err != nil {
			return err
		}
		return c.CopyArchive(ctx, path.Dir(target), archive)
	})
}

// CopyHostFile copies the host file source to target inside the container.
// A zero mode keeps the source file's permissions.
func CopyHostFile(source, target string, mode os.FileMode) lifecycle.PreStartAction[*Container] {
	return Action("copy "+source+" to "+target, func(ctx context.Context, c *Created) error {
		content, err := os.ReadFile(source)
		if err != nil {
			return err
		}
		perm := mode
		if perm == 0 {
			info, err := os.Stat(source)
			if err != nil {
				return err
			}
			perm = info.Mode().Perm()
		}
		return CopyFile(target, content, perm).Apply(ctx, c)
	})
}

// tarFile builds a single-file tar archive.
func tarFile(name string, content []byte, mode os.FileMode) (*bytes.Buffer, error) {
	if mode == 0 {
		mode = 0o644
	}
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	header := &tar.Header{
		Name: name,
		Mode: int64(mode.Perm()),
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(header); err != nil {
		return nil, err
	}
	if _, err := tw.Write(content); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}
