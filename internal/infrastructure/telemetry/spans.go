package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for service spans
const TracerName = "fulfillment"

// StartServiceSpan starts an internal span named "<service>.<method>"
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			append([]attribute.KeyValue{
				attribute.String("service.component", service),
				attribute.String("service.method", method),
			}, attrs...)...,
		),
	)
}

// EndSpan records err on span, if any, and ends it. Use with a named error return:
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "withdrawal", "Approve")
//	defer func() { telemetry.EndSpan(span, err) }()
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Attribute keys shared by spans and metrics
var (
	AttrOrderID     = attribute.Key("order.id")
	AttrAccountID   = attribute.Key("ledger.account_id")
	AttrCarrier     = attribute.Key("shipment.carrier")
	AttrAction      = attribute.Key("order.action")
	AttrFromStatus  = attribute.Key("order.from_status")
	AttrToStatus    = attribute.Key("order.to_status")
	AttrResult      = attribute.Key("result")
	AttrDirection   = attribute.Key("ledger.direction")
	AttrDecision    = attribute.Key("withdrawal.decision")
	AttrDBOperation = attribute.Key("db.operation")
)
