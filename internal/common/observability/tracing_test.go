package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"tourism-workers/internal/common/config"
)

func TestNewTracerProvider_Sampling(t *testing.T) {
	tests := []struct {
		name        string
		ratio       float64
		wantSampled bool
	}{
		{name: "always", ratio: 1, wantSampled: true},
		{name: "never", ratio: 0, wantSampled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			tp, err := NewTracerProvider("test", config.TracingConfig{SampleRatio: tt.ratio}, sdktrace.WithSpanProcessor(sr))
			require.NoError(t, err)
			defer tp.Shutdown(context.Background())

			ctx, span := tp.Tracer("test").Start(context.Background(), "job")
			assert.NotEmpty(t, TraceID(ctx))
			span.End()

			assert.Equal(t, tt.wantSampled, len(sr.Ended()) == 1)
		})
	}
}

func TestNewTracerProvider_ServiceResource(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider("tourism-workers", config.TracingConfig{SampleRatio: 1}, sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "job")
	span.End()

	require.Len(t, sr.Ended(), 1)
	attrs := sr.Ended()[0].Resource().Attributes()
	require.NotEmpty(t, attrs)
	assert.Equal(t, "service.name", string(attrs[0].Key))
	assert.Equal(t, "tourism-workers", attrs[0].Value.AsString())
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestEnableTracing_Disabled(t *testing.T) {
	o := &Observability{}
	require.NoError(t, o.EnableTracing("test", config.TracingConfig{}))
	assert.Nil(t, o.tracerProvider)
	o.Shutdown()
}
