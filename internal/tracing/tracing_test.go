package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	shutdown, err := Setup(context.Background(), "vendorbridge", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewProviderRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := NewProvider(sdktrace.WithSyncer(exporter))

	_, span := tp.Tracer(InstrumentationName).Start(context.Background(), "vendor.mongodb.find")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "vendor.mongodb.find", spans[0].Name)
}
