package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/emit"
	"github.com/transcendent-ai-labs/signal-collect/scmetrics"
)

// WorkerState is the explicit {Paused, Running, Converged, Idle} state
// machine from SPEC_FULL.md §4.3.
type WorkerState int

const (
	StatePaused WorkerState = iota
	StateRunning
	StateConverged
	StateIdle
)

func (s WorkerState) String() string {
	switch s {
	case StatePaused:
		return "Paused"
	case StateRunning:
		return "Running"
	case StateConverged:
		return "Converged"
	case StateIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// UndeliverableSignalHandler is invoked once per buffered signal whose
// target vertex was not found at delivery/collect time. The default,
// installed by NewWorker, silently drops the signal.
type UndeliverableSignalHandler[K comparable, V any] func(msg SignalMessage[K, V])

// receiveTimeout is the worker mailbox's reception-idle timeout (spec
// §4.3 implementation default).
const receiveTimeout = 5 * time.Millisecond

// Worker owns a shard of the vertex store and runs signal/collect
// operations on scheduled vertices. It is a single-threaded event loop:
// its VertexStore is never touched from any other goroutine.
type Worker[K comparable, V any] struct {
	ID int

	store *VertexStore[K, V]
	bus   *MessageBus[K, V]
	inbox Mailbox

	Counters Counters

	signalThreshold  float64
	collectThreshold float64

	state        WorkerState
	pendingStart bool
	pendingPause bool
	lastIdle     bool

	undeliverable UndeliverableSignalHandler[K, V]
	logger        emit.Logger
	throttle      *ThrottleGate
	metrics       *scmetrics.Metrics

	// statusSink receives WorkerStatus updates, normally the hosting
	// NodeActor's mailbox.
	statusSink     Mailbox
	statusInterval time.Duration

	editor *GraphEditor[K, V]

	alternateSignal bool
}

// WorkerConfig configures a new Worker.
type WorkerConfig[K comparable, V any] struct {
	ID               int
	Bus              *MessageBus[K, V]
	SignalThreshold  float64
	CollectThreshold float64
	Undeliverable    UndeliverableSignalHandler[K, V]
	Logger           emit.Logger
	Throttle         *ThrottleGate
	Metrics          *scmetrics.Metrics
	StatusSink       Mailbox
	InboxCapacity    int

	// StatusInterval, if positive, makes Run report status on this cadence
	// in addition to state-change edges (spec.md §3: "sent on state change
	// or on heartbeat interval"). Zero disables the interval report.
	StatusInterval time.Duration
}

// NewWorker builds a Worker in the initial Paused state with an empty
// vertex store.
func NewWorker[K comparable, V any](cfg WorkerConfig[K, V]) *Worker[K, V] {
	if cfg.Undeliverable == nil {
		cfg.Undeliverable = func(SignalMessage[K, V]) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = emit.NopLogger{}
	}
	if cfg.InboxCapacity <= 0 {
		cfg.InboxCapacity = 1024
	}
	w := &Worker[K, V]{
		ID:               cfg.ID,
		store:            NewVertexStore[K, V](),
		bus:              cfg.Bus,
		inbox:            make(Mailbox, cfg.InboxCapacity),
		signalThreshold:  cfg.SignalThreshold,
		collectThreshold: cfg.CollectThreshold,
		state:            StatePaused,
		undeliverable:    cfg.Undeliverable,
		logger:           cfg.Logger,
		throttle:         cfg.Throttle,
		metrics:          cfg.Metrics,
		statusSink:       cfg.StatusSink,
		statusInterval:   cfg.StatusInterval,
		alternateSignal:  true,
	}
	w.editor = newGraphEditor(cfg.Bus, w)
	return w
}

// Inbox returns the worker's mailbox, to be registered with the
// MessageBus.
func (w *Worker[K, V]) Inbox() Mailbox { return w.inbox }

// Editor returns a GraphEditor bound to this worker, for passing into
// vertex callbacks that mutate the graph.
func (w *Worker[K, V]) Editor() *GraphEditor[K, V] { return w.editor }

// Run is the worker's event loop. It returns when ctx is cancelled or a
// PoisonPill is received. vertexStore.CleanUp is guaranteed to run on
// every exit path.
func (w *Worker[K, V]) Run(ctx context.Context) {
	defer w.store.CleanUp()

	var statusTicks <-chan time.Time
	if w.statusInterval > 0 {
		ticker := time.NewTicker(w.statusInterval)
		defer ticker.Stop()
		statusTicks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.inbox:
			if !ok {
				return
			}
			if _, isPoison := msg.(PoisonPill); isPoison {
				return
			}
			w.handleMessage(msg)
			w.handlePauseAndContinue()
			w.drain()
		case <-statusTicks:
			w.reportStatus()
		case <-time.After(receiveTimeout):
			w.handlePauseAndContinue()
			if w.state == StatePaused || w.isConverged() {
				w.setIdle(true)
				continue
			}
			w.drain()
		}
	}
}

func (w *Worker[K, V]) isConverged() bool {
	return w.store.toSignal.IsEmpty() && w.store.toCollect.IsEmpty()
}

// drain alternates one toSignal step and one toCollect step for as long as
// the mailbox stays empty and the worker has pending work, yielding back
// to message processing the moment a new message arrives. This is the
// cooperative interleaving that provides asynchronous fairness without
// pre-emption (spec §5).
func (w *Worker[K, V]) drain() {
	for len(w.inbox) == 0 && w.state != StatePaused && !w.isConverged() {
		if w.alternateSignal {
			w.stepOneSignal()
		} else {
			w.stepOneCollect()
		}
		w.alternateSignal = !w.alternateSignal
	}
	w.updateRunState()
}

func (w *Worker[K, V]) updateRunState() {
	switch {
	case w.state == StatePaused:
		return
	case w.isConverged():
		if w.state != StateConverged && w.state != StateIdle {
			w.state = StateConverged
		}
	default:
		if w.state != StateRunning {
			w.state = StateRunning
			w.setIdle(false)
		}
	}
}

func (w *Worker[K, V]) setIdle(idle bool) {
	if idle && w.state != StatePaused {
		w.state = StateIdle
	}
	if w.lastIdle == idle {
		return
	}
	w.lastIdle = idle
	w.reportStatus()
}

func (w *Worker[K, V]) reportStatus() {
	if w.statusSink == nil {
		return
	}
	w.statusSink <- WorkerStatus{
		WorkerID:         w.ID,
		IsIdle:           w.lastIdle,
		IsPaused:         w.state == StatePaused,
		MessagesSent:     w.Counters.MessagesSent.Load(),
		MessagesReceived: w.Counters.MessagesReceived.Load(),
	}
}

// handlePauseAndContinue applies a pending start/pause command recorded by
// a control Request, transitioning Paused<->Running.
func (w *Worker[K, V]) handlePauseAndContinue() {
	switch {
	case w.pendingPause:
		w.pendingPause = false
		if w.state != StatePaused {
			w.state = StatePaused
			w.setIdle(false)
			w.lastIdle = false
		}
	case w.pendingStart:
		w.pendingStart = false
		if w.state == StatePaused {
			w.state = StateRunning
		}
	}
}

func (w *Worker[K, V]) handleMessage(msg any) {
	w.Counters.MessagesReceived.Add(1)
	isBootstrap := false
	switch m := msg.(type) {
	case SignalMessage[K, V]:
		w.deliverSignal(m)
	case Request[K, V]:
		result := m.Command(w)
		if m.Reply {
			w.Counters.MessagesSent.Add(1)
			m.replyTo <- result
		}
	case Heartbeat:
		isBootstrap = true
		w.onHeartbeat(m)
	case WorkerStatus, NodeStatus, NodeReady:
		isBootstrap = true
	default:
		w.logger.Warning("unknown message type at worker", "workerID", w.ID, "type", fmt.Sprintf("%T", msg))
	}
	if !isBootstrap {
		w.bus.MarkReceived(1)
	}
	if w.isConverged() {
		w.updateRunState()
	} else if w.state != StatePaused {
		w.state = StateRunning
		w.setIdle(false)
	}
}

func (w *Worker[K, V]) deliverSignal(m SignalMessage[K, V]) {
	w.store.toCollect.AddSignal(m.TargetID, m.Payload)
}

func (w *Worker[K, V]) onHeartbeat(hb Heartbeat) {
	if w.throttle != nil {
		w.throttle.Observe(hb)
	}
}

// canSend reports whether this worker may currently emit outgoing signals.
// It is false only while the throttle gate is engaged; incoming deliveries
// and local compute are never suspended.
func (w *Worker[K, V]) canSend() bool {
	return w.throttle == nil || w.throttle.Allowed()
}

func (w *Worker[K, V]) sendSignal(payload V, targetID K, sourceID *K) {
	if !w.canSend() {
		return
	}
	w.bus.SendSignal(payload, targetID, sourceID)
	w.Counters.MessagesSent.Add(1)
	if w.metrics != nil {
		w.metrics.IncMessagesSent("worker", 1)
	}
}

// guardVertexCall runs f, recovering any panic raised by user vertex code
// and logging it at Severe. Counters for the attempted step are not
// incremented when f panics.
func (w *Worker[K, V]) guardVertexCall(id K, phase string, f func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			w.logger.Severe("vertex callback failed", "workerID", w.ID, "vertexID", fmt.Sprintf("%v", id), "phase", phase, "panic", r)
			if w.metrics != nil {
				w.metrics.IncVertexPanic(phase)
			}
		}
	}()
	f()
	return true
}

func (w *Worker[K, V]) signalVertex(id K) {
	v, found := w.store.Get(id)
	if !found {
		return
	}
	if v.ScoreSignal() <= w.signalThreshold {
		return
	}
	if w.guardVertexCall(id, "signal", func() {
		v.ExecuteSignalOperation(w.editor)
	}) {
		w.Counters.SignalOperationsExecuted.Add(1)
		w.store.UpdateStateOfVertex(v)
	}
}

func (w *Worker[K, V]) collectVertex(id K, signals []V, addToSignal bool) {
	v, found := w.store.Get(id)
	if !found {
		for _, s := range signals {
			w.undeliverable(SignalMessage[K, V]{TargetID: id, Payload: s})
		}
		return
	}
	if v.ScoreCollect(signals) <= w.collectThreshold {
		return
	}
	if w.guardVertexCall(id, "collect", func() {
		v.ExecuteCollectOperation(signals, w.editor)
	}) {
		w.Counters.CollectOperationsExecuted.Add(1)
		w.store.UpdateStateOfVertex(v)
	}
	if addToSignal && v.ScoreSignal() > w.signalThreshold {
		w.store.toSignal.Add(id)
	}
}

func (w *Worker[K, V]) stepOneSignal() {
	if id, ok := w.store.toSignal.PopFront(); ok {
		w.signalVertex(id)
	}
}

func (w *Worker[K, V]) stepOneCollect() {
	if id, signals, ok := w.store.toCollect.PopFront(); ok {
		w.collectVertex(id, signals, true)
	}
}

// SignalStep drains toSignal entirely, for the synchronous execution
// protocol.
func (w *Worker[K, V]) SignalStep() {
	w.store.toSignal.DrainAll(w.signalVertex)
	w.Counters.SignalSteps.Add(1)
}

// CollectStep drains toCollect entirely and reports whether toSignal ended
// up empty, so the Coordinator knows whether a further signal step is
// needed.
func (w *Worker[K, V]) CollectStep() bool {
	w.store.toCollect.DrainAll(nil, func(id K, signals []V) {
		w.collectVertex(id, signals, true)
	})
	w.Counters.CollectSteps.Add(1)
	return w.store.toSignal.IsEmpty()
}

// RecalculateScores re-schedules every owned vertex onto both work queues
// so threshold gates are re-tested.
func (w *Worker[K, V]) RecalculateScores() {
	w.store.Foreach(func(v Vertex[K, V]) {
		w.store.toSignal.Add(v.ID())
		w.store.toCollect.AddVertex(v.ID())
	})
}

// RecalculateScoresForVertexWithID re-schedules a single vertex.
func (w *Worker[K, V]) RecalculateScoresForVertexWithID(id K) {
	if _, ok := w.store.Get(id); !ok {
		return
	}
	w.store.toSignal.Add(id)
	w.store.toCollect.AddVertex(id)
}

// AddVertex inserts v into the store, runs AfterInitialization and
// schedules it for its first signal/collect pass.
func (w *Worker[K, V]) AddVertex(v Vertex[K, V]) bool {
	if !w.store.Put(v) {
		return false
	}
	w.Counters.VerticesAdded.Add(1)
	w.guardVertexCall(v.ID(), "afterInitialization", func() {
		v.AfterInitialization(w.editor)
	})
	w.store.toCollect.AddVertex(v.ID())
	w.store.toSignal.Add(v.ID())
	return true
}

// RemoveVertex runs BeforeRemoval then deletes the vertex.
func (w *Worker[K, V]) RemoveVertex(id K) bool {
	v, ok := w.store.Get(id)
	if !ok {
		w.logger.Warning("missing vertex on removal", "workerID", w.ID, "vertexID", fmt.Sprintf("%v", id))
		return false
	}
	w.guardVertexCall(id, "beforeRemoval", func() {
		v.BeforeRemoval(w.editor)
	})
	w.store.Remove(id)
	w.Counters.VerticesRemoved.Add(1)
	return true
}

// AddOutgoingEdge adds e to its source vertex and forwards a
// fire-and-forget addIncomingEdge request to the target's owning worker.
func (w *Worker[K, V]) AddOutgoingEdge(e Edge[K]) bool {
	v, ok := w.store.Get(e.SourceID)
	if !ok {
		w.logger.Warning("missing vertex on edge add", "workerID", w.ID, "sourceID", fmt.Sprintf("%v", e.SourceID))
		return false
	}
	if !v.AddOutgoingEdge(e) {
		return false
	}
	w.Counters.EdgesAdded.Add(1)
	w.store.toCollect.AddVertex(e.SourceID)
	w.store.toSignal.Add(e.SourceID)

	edge := e
	req := NewRequest(func(target *Worker[K, V]) any {
		target.addIncomingEdge(edge)
		return nil
	})
	w.bus.SendToWorkerForVertexID(req, e.TargetID)
	w.Counters.MessagesSent.Add(1)
	return true
}

func (w *Worker[K, V]) addIncomingEdge(e Edge[K]) {
	w.store.AddIncomingEdge(e)
}

// AddPatternEdge adds e to its source vertex, lazily creating the target
// vertex via makeTarget if it is not yet present on the target's worker.
func (w *Worker[K, V]) AddPatternEdge(e Edge[K], makeTarget func(K) Vertex[K, V]) bool {
	if !w.AddOutgoingEdge(e) {
		return false
	}
	if makeTarget == nil {
		return true
	}
	edge := e
	req := NewRequest(func(target *Worker[K, V]) any {
		if _, exists := target.store.Get(edge.TargetID); !exists {
			target.AddVertex(makeTarget(edge.TargetID))
		}
		target.addIncomingEdge(edge)
		return nil
	})
	w.bus.SendToWorkerForVertexID(req, e.TargetID)
	w.Counters.MessagesSent.Add(1)
	return true
}

// RemoveOutgoingEdge removes the edge from sourceID to targetID and
// forwards a fire-and-forget removeIncomingEdge request to the target's
// owning worker.
func (w *Worker[K, V]) RemoveOutgoingEdge(sourceID, targetID K) bool {
	v, ok := w.store.Get(sourceID)
	if !ok {
		w.logger.Warning("missing vertex on edge removal", "workerID", w.ID, "sourceID", fmt.Sprintf("%v", sourceID))
		return false
	}
	if !v.RemoveOutgoingEdge(targetID) {
		return false
	}
	w.Counters.EdgesRemoved.Add(1)

	req := NewRequest(func(target *Worker[K, V]) any {
		target.removeIncomingEdge(sourceID, targetID)
		return nil
	})
	w.bus.SendToWorkerForVertexID(req, targetID)
	w.Counters.MessagesSent.Add(1)
	return true
}

func (w *Worker[K, V]) removeIncomingEdge(sourceID, targetID K) {
	w.store.RemoveIncomingEdge(sourceID, targetID)
}

// Pause requests a Running->Paused transition, applied at the next
// handlePauseAndContinue checkpoint.
func (w *Worker[K, V]) Pause() { w.pendingPause = true }

// Start requests a Paused->Running transition.
func (w *Worker[K, V]) Start() { w.pendingStart = true }

// State returns the worker's current state.
func (w *Worker[K, V]) State() WorkerState { return w.state }

// Status returns a fresh WorkerStatus snapshot.
func (w *Worker[K, V]) Status() WorkerStatus {
	return WorkerStatus{
		WorkerID:         w.ID,
		IsIdle:           w.state == StateIdle,
		IsPaused:         w.state == StatePaused,
		MessagesSent:     w.Counters.MessagesSent.Load(),
		MessagesReceived: w.Counters.MessagesReceived.Load(),
	}
}

// Aggregate folds op.Extract over every vertex owned by w, starting from
// op.NeutralElement. Go does not allow a method to introduce type
// parameters beyond its receiver's, so this is a package-level function
// rather than a Worker method.
func Aggregate[K comparable, V any, R any](w *Worker[K, V], op AggregationOperation[K, V, R]) R {
	acc := op.NeutralElement()
	w.store.Foreach(func(v Vertex[K, V]) {
		acc = op.Aggregate(acc, op.Extract(v))
	})
	return acc
}
