package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram

	tracerProvider *sdktrace.TracerProvider
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)

	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	runCounter, _ := meter.Int64Counter(
		"pipeline.runs",
		otelmetric.WithDescription("Number of tourism pipeline runs"),
	)

	runDuration, _ := meter.Float64Histogram(
		"pipeline.duration",
		otelmetric.WithDescription("End-to-end pipeline duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		runCounter:    runCounter,
		runDuration:   runDuration,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

// RecordPipelineRun records one agent run. degraded is true when the
// response came from the generator fallback.
func (o *Observability) RecordPipelineRun(ctx context.Context, duration time.Duration, intent string, degraded bool) {
	attrs := otelmetric.WithAttributes(
		attribute.String("intent", intent),
		attribute.Bool("degraded", degraded),
	)
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	o.shutdownTracing()
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
