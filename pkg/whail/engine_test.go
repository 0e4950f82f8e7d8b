package whail_test

import (
	"context"
	"errors"
	"testing"

	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike10004/containment-sub001/pkg/whail"
	"github.com/mike10004/containment-sub001/pkg/whail/whailtest"
)

func TestNewFromExisting_Defaults(t *testing.T) {
	e := whail.NewFromExisting(whailtest.NewFakeAPIClient(), whail.EngineOptions{})
	assert.Equal(t, "com.containment.managed", e.ManagedLabelKey())
	assert.Equal(t, "true", e.ManagedLabelValue())
	assert.Equal(t, whail.DefaultLabelPrefix, e.Options().LabelPrefix)
}

func TestEngine_HealthCheck(t *testing.T) {
	engine, fake := whailtest.NewEngine()
	require.NoError(t, engine.HealthCheck(context.Background()))
	whailtest.AssertCalled(t, fake, "Ping")

	fake.PingFn = func(context.Context, client.PingOptions) (client.PingResult, error) {
		return client.PingResult{}, errors.New("connection refused")
	}
	err := engine.HealthCheck(context.Background())

	var dockerErr *whail.DockerError
	require.ErrorAs(t, err, &dockerErr)
	assert.Equal(t, "connect", dockerErr.Op)
	assert.Contains(t, dockerErr.FormatUserError(), "Next Steps:")
	assert.Contains(t, dockerErr.FormatUserError(), "connection refused")
}
