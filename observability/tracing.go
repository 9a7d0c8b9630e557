package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/wrapnzap"

// Tracer provides OpenTelemetry tracing for zaps.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return NewTracerFromProvider(otel.GetTracerProvider())
}

// NewTracerFromProvider creates a tracer from an explicit provider.
func NewTracerFromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(tracerName),
	}
}

// StartZapSpan starts a span for one trigger invocation.
func (t *Tracer) StartZapSpan(ctx context.Context, zapper, recipient, trigger string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "wrapnzap.zap",
		trace.WithAttributes(
			attribute.String("wrapnzap.zapper", zapper),
			attribute.String("wrapnzap.recipient", recipient),
			attribute.String("wrapnzap.trigger", trigger),
		),
	)
}

// EndZapSpan ends a zap span with its outcome.
func (t *Tracer) EndZapSpan(span trace.Span, status, amount string, err error) {
	span.SetAttributes(attribute.String("wrapnzap.status", status))
	if amount != "" {
		span.SetAttributes(attribute.String("wrapnzap.amount", amount))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
