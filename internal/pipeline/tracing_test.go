package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRun_EmitsStageSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	f := newFakeTools()
	f.routes.err = errors.New("routing down")
	o := newOrchestrator(t, f.set(), Config{StageTimeout: time.Second, ParallelExtraction: true})

	_, err := o.Run(context.Background(), "Quiero ver el Prado")
	require.NoError(t, err)

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range sr.Ended() {
		spans[s.Name()] = s
	}
	run, ok := spans["pipeline.run"]
	require.True(t, ok)

	for _, stage := range []string{StageNLU, StageLocationNER, StageAccessibility, StageRoutes, StageVenueInfo} {
		s, ok := spans["stage "+stage]
		require.True(t, ok, stage)
		assert.Equal(t, run.SpanContext().TraceID(), s.SpanContext().TraceID(), stage)
		assert.Equal(t, run.SpanContext().SpanID(), s.Parent().SpanID(), stage)
	}

	assert.Equal(t, codes.Error, spans["stage "+StageRoutes].Status().Code)
	assert.Equal(t, codes.Unset, spans["stage "+StageNLU].Status().Code)
	assert.Equal(t, codes.Unset, run.Status().Code)
}
