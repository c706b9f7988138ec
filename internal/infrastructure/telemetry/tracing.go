package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of business spans
const TracerName = "roomtab"

// Span attribute keys
const (
	SpanAttrRoomID      = "roomtab.room_id"
	SpanAttrSessionID   = "roomtab.session_id"
	SpanAttrOrderID     = "roomtab.order_id"
	SpanAttrVariationID = "pos.variation_id"
	SpanAttrMode        = "roomtab.mirror.mode"
	SpanAttrAmount      = "roomtab.amount"
	SpanAttrLines       = "roomtab.lines"
)

// StartSpan starts an internal span on the global tracer provider.
// The caller must End the returned span.
//
//	ctx, span := telemetry.StartSpan(ctx, "mirror_sync.update",
//		attribute.String(telemetry.SpanAttrSessionID, id))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks the span failed. A nil err leaves the span untouched.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent records a named event with attributes on the span in ctx
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
