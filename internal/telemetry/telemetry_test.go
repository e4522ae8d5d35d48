package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestSetup(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	shutdown, err = Setup(context.Background(), Config{Enabled: true, Exporter: "noop"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = Setup(context.Background(), Config{Enabled: true, Exporter: "jaeger"})
	assert.ErrorContains(t, err, "unsupported exporter")
}

func TestStartSpanAndEnd(t *testing.T) {
	_, err := Setup(context.Background(), Config{})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "op", attribute.String("k", "v"))
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { End(span, errors.New("boom")) })
}
