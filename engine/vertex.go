package engine

// Vertex is the capability set a user-defined vertex implementation must
// provide. A vertex is owned exclusively by exactly one Worker for its
// whole lifetime; none of these methods are called concurrently for a
// given vertex.
//
// Type parameter K is the vertex id type, V the signal payload type.
type Vertex[K comparable, V any] interface {
	// ID returns the vertex's identifier. Must be stable for the lifetime
	// of the vertex.
	ID() K

	// AfterInitialization runs once, immediately after the vertex is added
	// to its owning Worker's store.
	AfterInitialization(editor *GraphEditor[K, V])

	// ExecuteSignalOperation emits signals along outgoing edges via editor.
	ExecuteSignalOperation(editor *GraphEditor[K, V])

	// ExecuteCollectOperation folds buffered signals into the vertex's
	// state.
	ExecuteCollectOperation(signals []V, editor *GraphEditor[K, V])

	// ScoreSignal reports how much the vertex wants to run its signal
	// step. A score greater than the graph's signal threshold schedules
	// the vertex onto toSignal.
	ScoreSignal() float64

	// ScoreCollect reports how much the vertex wants to run its collect
	// step given the currently buffered signals.
	ScoreCollect(signals []V) float64

	// AddOutgoingEdge adds e to this vertex's outgoing edge set. Returns
	// false if an edge to the same target already exists.
	AddOutgoingEdge(e Edge[K]) bool

	// RemoveOutgoingEdge removes the outgoing edge to targetID. Returns
	// false if no such edge existed.
	RemoveOutgoingEdge(targetID K) bool

	// BeforeRemoval runs once, immediately before the vertex is removed
	// from its owning Worker's store.
	BeforeRemoval(editor *GraphEditor[K, V])

	// OutgoingEdgeCount returns the number of outgoing edges currently
	// declared by the vertex.
	OutgoingEdgeCount() int
}

// Edge is a directed relation declared by its source vertex. It is
// logically stored inside the source vertex; an incoming-edge record may
// additionally be kept at the target vertex's worker for algorithms that
// need reverse lookups (see VertexStore.IncomingEdges).
type Edge[K comparable] struct {
	ID       string
	SourceID K
	TargetID K
	Payload  any
}
