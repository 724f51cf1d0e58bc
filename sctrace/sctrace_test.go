package sctrace

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func TestNilTracerMethodsAreNoOps(t *testing.T) {
	var tr *Tracer
	ctx := context.Background()

	_, end := tr.StartRun(ctx, "run-1", "Synchronous")
	end(nil)

	_, end = tr.StartSuperstep(ctx, "run-1", 0)
	end(errors.New("boom"))

	_, end = tr.StartRequest(ctx, "broadcastAndCollect", 4)
	end(nil)

	tr.RecordHeartbeat(ctx, 12)
}

func TestTracerWithNoopProviderDoesNotPanic(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	tr := New(tracer)
	ctx := context.Background()

	spanCtx, end := tr.StartRun(ctx, "run-1", "Synchronous")
	if spanCtx == nil {
		t.Fatal("expected a non-nil context from StartRun")
	}
	end(nil)

	_, end = tr.StartSuperstep(ctx, "run-1", 3)
	end(errors.New("boom"))

	tr.RecordHeartbeat(ctx, 99)
}
