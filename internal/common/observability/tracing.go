package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"tourism-workers/internal/common/config"
)

// NewTracerProvider builds the SDK tracer provider for cfg. Spans are
// exported to Jaeger only when an endpoint is configured.
func NewTracerProvider(serviceName string, cfg config.TracingConfig, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	}

	if cfg.JaegerEndpoint != "" {
		exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("jaeger exporter: %w", err)
		}
		base = append(base, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(append(base, opts...)...), nil
}

// EnableTracing installs a tracer provider as the global one. Packages that
// obtained a tracer through otel.Tracer start recording from here on.
func (o *Observability) EnableTracing(serviceName string, cfg config.TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}
	tp, err := NewTracerProvider(serviceName, cfg)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	o.tracerProvider = tp
	return nil
}

// TraceID returns the trace id carried by ctx, or "" when there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (o *Observability) shutdownTracing() {
	if o.tracerProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.tracerProvider.Shutdown(ctx)
}
