package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans, one per
// event, so a Heartbeat, superstep or Request round trip shows up in
// distributed traces alongside the rest of a deployment. Grounded on the
// teacher's OTelEmitter (graph/emit/otel.go), narrowed to the engine's
// Event shape.
type OTelEmitter struct {
	tracer trace.Tracer
	ctx    context.Context
}

// NewOTelEmitter builds an OTelEmitter that starts spans against tracer
// using ctx as the parent context for every emitted event.
func NewOTelEmitter(ctx context.Context, tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer, ctx: ctx}
}

// Emit starts and immediately ends a span named event.Msg carrying runID/
// step/node attributes plus event.Meta.
func (e *OTelEmitter) Emit(event Event) {
	attrs := []attribute.KeyValue{
		attribute.String("run_id", event.RunID),
		attribute.String("node_id", event.NodeID),
		attribute.Int("step", event.Step),
	}
	for k, v := range event.Meta {
		attrs = append(attrs, attribute.String(k, toString(v)))
	}
	_, span := e.tracer.Start(e.ctx, event.Msg, trace.WithAttributes(attrs...))
	if errVal, ok := event.Meta["error"]; ok {
		span.SetStatus(codes.Error, toString(errVal))
	}
	span.End()
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", v)
}
