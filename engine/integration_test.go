package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/scstore"
)

// prVertex and ssspTestVertex are small, local Vertex[K, V]
// implementations so engine tests can drive a real Graph to convergence
// without depending on the algorithm package.

type prVertex struct {
	id              int
	damping         float64
	state           float64
	lastSignalState float64
	edges           []int
}

func newPRVertex(id int) *prVertex { return &prVertex{id: id, damping: 0.85, state: 0.15} }

func (v *prVertex) ID() int                                   { return v.id }
func (v *prVertex) AfterInitialization(*GraphEditor[int, float64]) {}
func (v *prVertex) ExecuteSignalOperation(editor *GraphEditor[int, float64]) {
	v.lastSignalState = v.state
	if len(v.edges) == 0 {
		return
	}
	share := v.state / float64(len(v.edges))
	id := v.id
	for _, t := range v.edges {
		editor.SendSignal(share, t, &id)
	}
}
func (v *prVertex) ExecuteCollectOperation(signals []float64, _ *GraphEditor[int, float64]) {
	sum := 0.0
	for _, s := range signals {
		sum += s
	}
	v.state = (1 - v.damping) + v.damping*sum
}
func (v *prVertex) ScoreSignal() float64 {
	d := v.state - v.lastSignalState
	if d < 0 {
		d = -d
	}
	return d
}
func (v *prVertex) ScoreCollect(signals []float64) float64 { return float64(len(signals)) }
func (v *prVertex) AddOutgoingEdge(e Edge[int]) bool {
	v.edges = append(v.edges, e.TargetID)
	return true
}
func (v *prVertex) RemoveOutgoingEdge(targetID int) bool { return false }
func (v *prVertex) BeforeRemoval(*GraphEditor[int, float64]) {}
func (v *prVertex) OutgoingEdgeCount() int { return len(v.edges) }

// TestSynchronousPageRankConverges exercises scenario S1: a 3-cycle under
// Synchronous execution converges to the closed-form PageRank values within
// the configured signalThreshold.
func TestSynchronousPageRankConverges(t *testing.T) {
	cfg := DefaultBuilderConfig[int]()
	cfg.NumberOfWorkers = 2
	g, err := NewGraph[int, float64](cfg)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	defer g.Shutdown()

	editor := g.Editor()
	v1, v2, v3 := newPRVertex(1), newPRVertex(2), newPRVertex(3)
	editor.AddVertex(v1)
	editor.AddVertex(v2)
	editor.AddVertex(v3)
	editor.AddEdge(1, Edge[int]{TargetID: 2})
	editor.AddEdge(2, Edge[int]{TargetID: 1})
	editor.AddEdge(2, Edge[int]{TargetID: 3})
	editor.AddEdge(3, Edge[int]{TargetID: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := editor.Execute(ctx, ExecutionConfig{
		Mode:             Synchronous,
		SignalThreshold:  0.001,
		CollectThreshold: 0.0,
		TimeLimit:        5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if summary.Reason != Converged {
		t.Fatalf("Reason = %v, want Converged", summary.Reason)
	}
	if summary.RunID == "" {
		t.Fatal("expected a generated RunID")
	}

	want := map[int]float64{1: 0.2596, 2: 0.3863, 3: 0.3543}
	got := map[int]*prVertex{1: v1, 2: v2, 3: v3}
	for id, w := range want {
		if math.Abs(got[id].state-w) > 0.01 {
			t.Errorf("vertex %d state = %.4f, want ~%.4f", id, got[id].state, w)
		}
	}
}

// ssspTestVertex implements a minimal unweighted SSSP on
// engine.Vertex[int, int] for scenarios S2/S3.

type ssspTestVertex struct {
	id                   int
	isSource             bool
	distance             int
	lastSignaledDistance int
	edges                []int
}

const ssspUnreachable = -1

func newSSSPTestVertex(id int, isSource bool) *ssspTestVertex {
	d := ssspUnreachable
	if isSource {
		d = 0
	}
	return &ssspTestVertex{id: id, isSource: isSource, distance: d, lastSignaledDistance: ssspUnreachable}
}

func (v *ssspTestVertex) ID() int                               { return v.id }
func (v *ssspTestVertex) AfterInitialization(*GraphEditor[int, int]) {}
func (v *ssspTestVertex) ExecuteSignalOperation(editor *GraphEditor[int, int]) {
	v.lastSignaledDistance = v.distance
	if v.distance == ssspUnreachable {
		return
	}
	id := v.id
	for _, t := range v.edges {
		editor.SendSignal(v.distance+1, t, &id)
	}
}
func (v *ssspTestVertex) ExecuteCollectOperation(signals []int, _ *GraphEditor[int, int]) {
	for _, s := range signals {
		if v.distance == ssspUnreachable || s < v.distance {
			v.distance = s
		}
	}
}
func (v *ssspTestVertex) ScoreSignal() float64 {
	if v.isSource && v.lastSignaledDistance == ssspUnreachable {
		return 1
	}
	if v.distance != v.lastSignaledDistance {
		return 1
	}
	return 0
}
func (v *ssspTestVertex) ScoreCollect(signals []int) float64 { return float64(len(signals)) }
func (v *ssspTestVertex) AddOutgoingEdge(e Edge[int]) bool {
	v.edges = append(v.edges, e.TargetID)
	return true
}
func (v *ssspTestVertex) RemoveOutgoingEdge(targetID int) bool { return false }
func (v *ssspTestVertex) BeforeRemoval(*GraphEditor[int, int]) {}
func (v *ssspTestVertex) OutgoingEdgeCount() int { return len(v.edges) }

// TestSynchronousSSSPConvergesWithUnreachableVertex exercises S2 and S3
// together: a 6-node DAG reaches its known shortest distances, and a 7th
// vertex with no incoming path stays unreachable at convergence.
func TestSynchronousSSSPConvergesWithUnreachableVertex(t *testing.T) {
	cfg := DefaultBuilderConfig[int]()
	cfg.NumberOfWorkers = 3
	g, err := NewGraph[int, int](cfg)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	defer g.Shutdown()

	editor := g.Editor()
	vertices := map[int]*ssspTestVertex{
		1: newSSSPTestVertex(1, true),
		2: newSSSPTestVertex(2, false),
		3: newSSSPTestVertex(3, false),
		4: newSSSPTestVertex(4, false),
		5: newSSSPTestVertex(5, false),
		6: newSSSPTestVertex(6, false),
		7: newSSSPTestVertex(7, false), // unreachable sink, no incoming edges
	}
	for _, v := range vertices {
		editor.AddVertex(v)
	}
	for _, e := range [][2]int{{1, 2}, {2, 3}, {3, 4}, {1, 5}, {4, 6}, {5, 6}} {
		editor.AddEdge(e[0], Edge[int]{TargetID: e[1]})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	summary, err := editor.Execute(ctx, ExecutionConfig{Mode: Synchronous, TimeLimit: 5 * time.Second})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if summary.Reason != Converged {
		t.Fatalf("Reason = %v, want Converged", summary.Reason)
	}

	want := map[int]int{1: 0, 2: 1, 3: 2, 4: 3, 5: 1, 6: 2}
	for id, w := range want {
		if vertices[id].distance != w {
			t.Errorf("vertex %d distance = %d, want %d", id, vertices[id].distance, w)
		}
	}
	if vertices[7].distance != ssspUnreachable {
		t.Errorf("vertex 7 distance = %d, want unreachable", vertices[7].distance)
	}
}

// TestMessageConservationHoldsAtConvergence exercises S4: after a run
// terminates by convergence, total messages sent across the whole bus
// equals total messages received, modulo bootstrap/heartbeat traffic which
// is exempted by construction.
func TestMessageConservationHoldsAtConvergence(t *testing.T) {
	cfg := DefaultBuilderConfig[int]()
	cfg.NumberOfWorkers = 2
	g, err := NewGraph[int, float64](cfg)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	defer g.Shutdown()

	editor := g.Editor()
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	for _, id := range ids {
		editor.AddVertex(newPRVertex(id))
	}
	for i, id := range ids {
		editor.AddEdge(id, Edge[int]{TargetID: ids[(i+1)%len(ids)]})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	summary, err := editor.Execute(ctx, ExecutionConfig{
		Mode:            Synchronous,
		SignalThreshold: 0.001,
		StepsLimit:      200,
		TimeLimit:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if summary.Reason != Converged && summary.Reason != StepsLimitReached {
		t.Fatalf("Reason = %v, want Converged or StepsLimitReached", summary.Reason)
	}

	stats := g.Bus().Stats()
	if stats.TotalSent() != stats.MessagesReceived {
		t.Fatalf("message conservation violated: sent=%d received=%d", stats.TotalSent(), stats.MessagesReceived)
	}
}

// TestExecuteWithRunIDPersistsRunRecord exercises the Coordinator's
// scstore.Store wiring: after a run terminates, its RunRecord is
// retrievable by the RunID that Execute returned.
func TestExecuteWithRunIDPersistsRunRecord(t *testing.T) {
	store := scstore.NewMemStore()
	cfg := DefaultBuilderConfig[int]()
	cfg.NumberOfWorkers = 1
	cfg.Store = store
	g, err := NewGraph[int, float64](cfg)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	defer g.Shutdown()

	editor := g.Editor()
	editor.AddVertex(newPRVertex(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	summary, err := editor.Execute(ctx, ExecutionConfig{Mode: Synchronous, SignalThreshold: 0.001, TimeLimit: 5 * time.Second})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	record, err := store.LoadRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("LoadRun(%q): %v", summary.RunID, err)
	}
	if record.Reason != summary.Reason.String() {
		t.Fatalf("persisted reason = %q, want %q", record.Reason, summary.Reason.String())
	}
}
