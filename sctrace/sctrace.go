// Package sctrace wraps OpenTelemetry spans around the Coordinator's
// execution protocol: one run span, one span per superstep, and one span
// per broadcast-and-collect Request round trip to the worker pool.
// Grounded on the teacher's graph/emit/otel.go, whose OTelEmitter starts
// and immediately ends a point-in-time span per Event; sctrace instead
// holds spans open across the actual operation they describe (a
// superstep's SignalStep+CollectStep, a request's send-then-await), which
// the Event-shaped Emitter interface cannot express.
package sctrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts the spans a running Coordinator needs. A nil *Tracer is
// valid and every method on it is then a no-op, so wiring tracing in is
// optional.
type Tracer struct {
	tracer trace.Tracer
}

// New wraps tracer. New(nil) is valid: with no underlying trace.Tracer,
// StartRun/StartSuperstep/StartRequest start no spans.
func New(tracer trace.Tracer) *Tracer {
	return &Tracer{tracer: tracer}
}

// endFunc ends the span it closes over; StartX callers always defer it.
type endFunc func(err error)

func (t *Tracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, endFunc) {
	if t == nil || t.tracer == nil {
		return ctx, func(error) {}
	}
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return spanCtx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}
}

// StartRun opens the root span for one Coordinator.Execute call.
func (t *Tracer) StartRun(ctx context.Context, runID string, mode string) (context.Context, endFunc) {
	return t.start(ctx, "signalcollect.run",
		attribute.String("run_id", runID),
		attribute.String("mode", mode),
	)
}

// StartSuperstep opens a span covering one signalStep+collectStep round
// in Synchronous/OptimizedAsynchronous mode.
func (t *Tracer) StartSuperstep(ctx context.Context, runID string, index int) (context.Context, endFunc) {
	return t.start(ctx, "signalcollect.superstep",
		attribute.String("run_id", runID),
		attribute.Int("superstep", index),
	)
}

// StartRequest opens a span covering one broadcastAndCollect round trip
// to every worker.
func (t *Tracer) StartRequest(ctx context.Context, kind string, numberOfWorkers int) (context.Context, endFunc) {
	return t.start(ctx, "signalcollect.request",
		attribute.String("kind", kind),
		attribute.Int("workers", numberOfWorkers),
	)
}

// RecordHeartbeat opens and immediately ends a point-in-time span for one
// heartbeat broadcast, mirroring the teacher's OTelEmitter for an event
// with no meaningful duration of its own.
func (t *Tracer) RecordHeartbeat(ctx context.Context, globalInboxSize int64) {
	_, end := t.start(ctx, "signalcollect.heartbeat", attribute.Int64("global_inbox_size", globalInboxSize))
	end(nil)
}
