package camunda

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tourism-workers/camunda")

// StartJobSpan opens the consumer span every job handler runs under.
func StartJobSpan(ctx context.Context, job entities.Job) (context.Context, trace.Span) {
	return tracer.Start(ctx, job.GetType(),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.Int64("zeebe.job.key", job.GetKey()),
			attribute.Int64("zeebe.process_instance.key", job.GetProcessInstanceKey()),
			attribute.String("zeebe.bpmn_process_id", job.GetBpmnProcessId()),
			attribute.String("zeebe.element_id", job.GetElementId()),
			attribute.Int("zeebe.job.retries", int(job.GetRetries())),
		),
	)
}

// FailSpan marks span as failed with err.
func FailSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordOutcome tags span with what the broker was told to do with a failed job.
func RecordOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("zeebe.job.outcome", outcome))
}
