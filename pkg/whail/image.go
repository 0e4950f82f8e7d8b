package whail

import (
	"context"
	"io"

	"github.com/moby/moby/client"
)

// ImageExists reports whether imageRef is present locally.
func (e *Engine) ImageExists(ctx context.Context, imageRef string) (bool, error) {
	_, err := e.APIClient.ImageInspect(ctx, imageRef)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, ErrImageNotFound(imageRef, err)
}

// ImagePull pulls imageRef and waits for the pull to complete.
func (e *Engine) ImagePull(ctx context.Context, imageRef string) error {
	resp, err := e.APIClient.ImagePull(ctx, imageRef, client.ImagePullOptions{})
	if err != nil {
		return ErrImagePullFailed(imageRef, err)
	}
	defer resp.Close()
	if _, err := io.Copy(io.Discard, resp); err != nil {
		return ErrImagePullFailed(imageRef, err)
	}
	return nil
}
