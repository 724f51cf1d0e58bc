package algorithm

import "github.com/transcendent-ai-labs/signal-collect/engine"

// unreachable is the signal/state sentinel for "no known distance yet",
// standing in for spec.md §8 scenario S2/S3's `None`. math.MaxInt would
// overflow on addition, so a dedicated sentinel keeps relaxation safe.
const unreachable = -1

// ssspEdge records an outgoing edge's target and its (always-positive)
// weight, defaulting to 1 to match the unweighted DAG in scenario S2.
type ssspEdge[K comparable] struct {
	target K
	weight int
}

// SSSPVertex implements single-source shortest paths as an
// engine.Vertex[K, int]: the signal payload is a candidate distance, state
// is the best distance known so far (unreachable until the first signal
// arrives). The source vertex seeds itself with distance 0 and no incoming
// signal is required to start it signaling.
type SSSPVertex[K comparable] struct {
	id       K
	isSource bool
	distance int

	lastSignaledDistance int
	edges                []ssspEdge[K]
}

// NewSSSPVertex builds a non-source SSSPVertex with distance unreachable
// until a signal arrives.
func NewSSSPVertex[K comparable](id K) *SSSPVertex[K] {
	return &SSSPVertex[K]{id: id, distance: unreachable, lastSignaledDistance: unreachable}
}

// NewSSSPSourceVertex builds the distinguished source vertex, distance 0.
func NewSSSPSourceVertex[K comparable](id K) *SSSPVertex[K] {
	return &SSSPVertex[K]{id: id, isSource: true, distance: 0, lastSignaledDistance: unreachable}
}

// ID implements engine.Vertex.
func (v *SSSPVertex[K]) ID() K { return v.id }

// Distance returns the vertex's current shortest-known distance, or false
// if it is still unreachable (spec.md's `None`).
func (v *SSSPVertex[K]) Distance() (int, bool) {
	if v.distance == unreachable {
		return 0, false
	}
	return v.distance, true
}

// AfterInitialization implements engine.Vertex.
func (v *SSSPVertex[K]) AfterInitialization(*engine.GraphEditor[K, int]) {}

// ExecuteSignalOperation forwards distance+weight along every outgoing
// edge, once a finite distance is known.
func (v *SSSPVertex[K]) ExecuteSignalOperation(editor *engine.GraphEditor[K, int]) {
	v.lastSignaledDistance = v.distance
	if v.distance == unreachable {
		return
	}
	id := v.id
	for _, e := range v.edges {
		editor.SendSignal(v.distance+e.weight, e.target, &id)
	}
}

// ExecuteCollectOperation relaxes state to the minimum of its current
// distance and every buffered candidate.
func (v *SSSPVertex[K]) ExecuteCollectOperation(signals []int, _ *engine.GraphEditor[K, int]) {
	for _, s := range signals {
		if v.distance == unreachable || s < v.distance {
			v.distance = s
		}
	}
}

// ScoreSignal reports 1 once the distance has changed since the last
// signal step (or the vertex is the source and has never signaled), 0
// otherwise — SSSP only needs to re-signal on an actual improvement.
func (v *SSSPVertex[K]) ScoreSignal() float64 {
	if v.isSource && v.lastSignaledDistance == unreachable {
		return 1
	}
	if v.distance != v.lastSignaledDistance {
		return 1
	}
	return 0
}

// ScoreCollect reports enough signal to collect whenever candidates are
// buffered.
func (v *SSSPVertex[K]) ScoreCollect(signals []int) float64 {
	return float64(len(signals))
}

// AddOutgoingEdge implements engine.Vertex. Edge.Payload, if an int, is
// used as the edge weight; any other payload (including nil) defaults to
// weight 1.
func (v *SSSPVertex[K]) AddOutgoingEdge(e engine.Edge[K]) bool {
	for _, existing := range v.edges {
		if existing.target == e.TargetID {
			return false
		}
	}
	weight := 1
	if w, ok := e.Payload.(int); ok {
		weight = w
	}
	v.edges = append(v.edges, ssspEdge[K]{target: e.TargetID, weight: weight})
	return true
}

// RemoveOutgoingEdge implements engine.Vertex.
func (v *SSSPVertex[K]) RemoveOutgoingEdge(targetID K) bool {
	for i, e := range v.edges {
		if e.target == targetID {
			v.edges = append(v.edges[:i], v.edges[i+1:]...)
			return true
		}
	}
	return false
}

// BeforeRemoval implements engine.Vertex; nothing to release.
func (v *SSSPVertex[K]) BeforeRemoval(*engine.GraphEditor[K, int]) {}

// OutgoingEdgeCount implements engine.Vertex.
func (v *SSSPVertex[K]) OutgoingEdgeCount() int { return len(v.edges) }
