// Package algorithm provides example Vertex implementations exercising the
// engine.GraphEditor/Vertex surface: PageRankVertex and SSSPVertex, covering
// the S1-S3 scenarios from SPEC_FULL.md §8. Concrete algorithms are an
// external-collaborator concern per spec.md §1's Non-goals; these exist to
// give the engine's test suite something real to converge on, the way the
// teacher's examples/ directory exercises graph.Engine end to end.
package algorithm

import "github.com/transcendent-ai-labs/signal-collect/engine"

// PageRankVertex implements the classic power-iteration PageRank update as
// an engine.Vertex[K, float64]: ExecuteSignalOperation divides the current
// rank evenly across outgoing edges, ExecuteCollectOperation folds incoming
// contributions through the damping formula.
type PageRankVertex[K comparable] struct {
	id      K
	damping float64
	state   float64

	lastSignalState float64
	edges           []K
}

// NewPageRankVertex builds a PageRankVertex with the given initial state
// (spec.md §8 scenario S1 uses 0.15) and damping factor (0.85 in S1).
func NewPageRankVertex[K comparable](id K, initialState, damping float64) *PageRankVertex[K] {
	return &PageRankVertex[K]{id: id, damping: damping, state: initialState}
}

// ID implements engine.Vertex.
func (v *PageRankVertex[K]) ID() K { return v.id }

// State returns the vertex's current PageRank value.
func (v *PageRankVertex[K]) State() float64 { return v.state }

// AfterInitialization implements engine.Vertex; PageRank needs no setup
// beyond the initial state passed to NewPageRankVertex.
func (v *PageRankVertex[K]) AfterInitialization(*engine.GraphEditor[K, float64]) {}

// ExecuteSignalOperation sends state/outDegree to every outgoing neighbor,
// the standard PageRank mass-distribution step.
func (v *PageRankVertex[K]) ExecuteSignalOperation(editor *engine.GraphEditor[K, float64]) {
	v.lastSignalState = v.state
	if len(v.edges) == 0 {
		return
	}
	share := v.state / float64(len(v.edges))
	id := v.id
	for _, target := range v.edges {
		editor.SendSignal(share, target, &id)
	}
}

// ExecuteCollectOperation applies the damped sum of incoming signals.
func (v *PageRankVertex[K]) ExecuteCollectOperation(signals []float64, _ *engine.GraphEditor[K, float64]) {
	sum := 0.0
	for _, s := range signals {
		sum += s
	}
	v.state = (1 - v.damping) + v.damping*sum
}

// ScoreSignal reports how much the rank has moved since the last signal
// step; a vertex whose rank has stabilized stops signaling once this drops
// below signalThreshold.
func (v *PageRankVertex[K]) ScoreSignal() float64 {
	d := v.state - v.lastSignalState
	if d < 0 {
		d = -d
	}
	return d
}

// ScoreCollect always reports enough signal to collect whenever any signals
// are buffered, since PageRank has no reason to defer a collect step.
func (v *PageRankVertex[K]) ScoreCollect(signals []float64) float64 {
	return float64(len(signals))
}

// AddOutgoingEdge implements engine.Vertex.
func (v *PageRankVertex[K]) AddOutgoingEdge(e engine.Edge[K]) bool {
	for _, t := range v.edges {
		if t == e.TargetID {
			return false
		}
	}
	v.edges = append(v.edges, e.TargetID)
	return true
}

// RemoveOutgoingEdge implements engine.Vertex.
func (v *PageRankVertex[K]) RemoveOutgoingEdge(targetID K) bool {
	for i, t := range v.edges {
		if t == targetID {
			v.edges = append(v.edges[:i], v.edges[i+1:]...)
			return true
		}
	}
	return false
}

// BeforeRemoval implements engine.Vertex; nothing to release.
func (v *PageRankVertex[K]) BeforeRemoval(*engine.GraphEditor[K, float64]) {}

// OutgoingEdgeCount implements engine.Vertex.
func (v *PageRankVertex[K]) OutgoingEdgeCount() int { return len(v.edges) }
