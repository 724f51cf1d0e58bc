package engine

import (
	"context"
	"fmt"
)

// GraphEditor is the surface algorithms and driver code use to mutate and
// query the graph: addVertex, addEdge, removeVertex, removeEdge,
// sendSignal, modifyGraph, foreachVertex, awaitIdle, execute and shutdown
// (spec.md §6). It is a concrete type rather than an interface because Go
// methods cannot introduce additional type parameters, which AggregateGraph
// requires; see the package-level AggregateGraph function.
//
// A GraphEditor handed to a vertex callback (AfterInitialization,
// ExecuteSignalOperation, ...) is bound to that vertex's owning worker and
// takes a same-worker fast path for local mutations. A GraphEditor
// obtained from the Coordinator (via NewDriverEditor) has no bound worker
// and always routes through the MessageBus.
type GraphEditor[K comparable, V any] struct {
	bus         *MessageBus[K, V]
	worker      *Worker[K, V]
	coordinator *Coordinator[K, V]
}

func newGraphEditor[K comparable, V any](bus *MessageBus[K, V], w *Worker[K, V]) *GraphEditor[K, V] {
	return &GraphEditor[K, V]{bus: bus, worker: w}
}

// NewDriverEditor builds a GraphEditor for use outside any worker, e.g. by
// the code that constructs the initial graph and calls Execute.
func NewDriverEditor[K comparable, V any](bus *MessageBus[K, V], coordinator *Coordinator[K, V]) *GraphEditor[K, V] {
	return &GraphEditor[K, V]{bus: bus, coordinator: coordinator}
}

func (e *GraphEditor[K, V]) isLocal(id K) bool {
	return e.worker != nil && e.bus.Mapper().WorkerForVertex(id) == e.worker.ID
}

// AddVertex adds v to the graph, routing to v's owning worker.
func (e *GraphEditor[K, V]) AddVertex(v Vertex[K, V]) {
	id := v.ID()
	if e.isLocal(id) {
		e.worker.AddVertex(v)
		return
	}
	req := NewRequest(func(w *Worker[K, V]) any { return w.AddVertex(v) })
	e.bus.SendToWorkerForVertexID(req, id)
}

// AddEdge adds an edge whose source is sourceID, routing to sourceID's
// owning worker.
func (e *GraphEditor[K, V]) AddEdge(sourceID K, edge Edge[K]) {
	edge.SourceID = sourceID
	if e.isLocal(sourceID) {
		e.worker.AddOutgoingEdge(edge)
		return
	}
	req := NewRequest(func(w *Worker[K, V]) any { return w.AddOutgoingEdge(edge) })
	e.bus.SendToWorkerForVertexID(req, sourceID)
}

// RemoveVertex removes the vertex with the given id.
func (e *GraphEditor[K, V]) RemoveVertex(id K) {
	if e.isLocal(id) {
		e.worker.RemoveVertex(id)
		return
	}
	req := NewRequest(func(w *Worker[K, V]) any { return w.RemoveVertex(id) })
	e.bus.SendToWorkerForVertexID(req, id)
}

// RemoveEdge removes the edge from sourceID to targetID.
func (e *GraphEditor[K, V]) RemoveEdge(sourceID, targetID K) {
	if e.isLocal(sourceID) {
		e.worker.RemoveOutgoingEdge(sourceID, targetID)
		return
	}
	req := NewRequest(func(w *Worker[K, V]) any { return w.RemoveOutgoingEdge(sourceID, targetID) })
	e.bus.SendToWorkerForVertexID(req, sourceID)
}

// SendSignal routes payload to targetID, optionally attributing it to
// sourceID for algorithms that key signals by sender.
func (e *GraphEditor[K, V]) SendSignal(payload V, targetID K, sourceID *K) {
	if e.worker != nil {
		e.worker.sendSignal(payload, targetID, sourceID)
		return
	}
	e.bus.SendSignal(payload, targetID, sourceID)
}

// ModifyGraph applies mutator either on the local worker (if this editor
// is worker-bound and onWorker is nil or matches) or on the worker
// identified by onWorker.
func (e *GraphEditor[K, V]) ModifyGraph(mutator func(*GraphEditor[K, V]), onWorker *int) {
	if e.worker != nil && (onWorker == nil || *onWorker == e.worker.ID) {
		mutator(e)
		return
	}
	idx := 0
	if onWorker != nil {
		idx = *onWorker
	}
	req := NewRequest(func(w *Worker[K, V]) any {
		mutator(w.editor)
		return nil
	})
	e.bus.SendToWorkerIndex(req, idx)
}

// ForeachVertex applies f to every vertex on the local worker's shard
// only. Driver code that needs every vertex in the graph should instead
// use AggregateGraph with an operation that collects what it needs.
func (e *GraphEditor[K, V]) ForeachVertex(f func(Vertex[K, V])) {
	if e.worker == nil {
		panic("engine: ForeachVertex requires a worker-bound GraphEditor")
	}
	e.worker.store.Foreach(f)
}

// AwaitIdle blocks until the coordinator reports global convergence or ctx
// is cancelled.
func (e *GraphEditor[K, V]) AwaitIdle(ctx context.Context) error {
	if e.coordinator == nil {
		panic("engine: AwaitIdle requires a driver GraphEditor")
	}
	return e.coordinator.AwaitIdle(ctx)
}

// Execute runs the coordinator under cfg and returns the run summary.
func (e *GraphEditor[K, V]) Execute(ctx context.Context, cfg ExecutionConfig) (RunSummary, error) {
	if e.coordinator == nil {
		panic("engine: Execute requires a driver GraphEditor")
	}
	return e.coordinator.Execute(ctx, cfg)
}

// Shutdown tears down the whole cluster.
func (e *GraphEditor[K, V]) Shutdown() {
	if e.coordinator == nil {
		panic("engine: Shutdown requires a driver GraphEditor")
	}
	e.coordinator.Shutdown()
}

// AggregateGraph runs op across every worker reachable from the driver
// GraphEditor e, combining partial results with op.Aggregate. It is a
// package-level function rather than a GraphEditor method because Go
// forbids a method from introducing type parameters beyond its receiver's.
// Distinct from the worker-local Aggregate in worker.go, which folds op
// over one worker's vertices; AggregateGraph round-trips through the
// Coordinator to fold across every worker in the cluster.
func AggregateGraph[K comparable, V any, R any](e *GraphEditor[K, V], op AggregationOperation[K, V, R]) (R, error) {
	if e.coordinator == nil {
		var zero R
		return zero, fmt.Errorf("engine: AggregateGraph requires a driver GraphEditor")
	}
	return aggregateAcrossWorkers(e.coordinator, op)
}
