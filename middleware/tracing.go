package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// tracerName is the instrumentation scope name for docledger tracing.
const tracerName = "github.com/BetoIII/docledger"

// Tracing returns middleware that wraps step execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: docledger.run.id, docledger.run.kind,
// docledger.event.name, docledger.document.id. On error, the span
// status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, run *workflow.Run, evt *ledger.Event, next Handler) error {
		ctx, span := tracer.Start(ctx, "docledger.step.execute",
			trace.WithAttributes(
				attribute.String("docledger.run.id", run.ID.String()),
				attribute.String("docledger.run.kind", string(run.Kind)),
				attribute.String("docledger.event.name", evt.Name),
				attribute.String("docledger.document.id", run.DocumentID.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
