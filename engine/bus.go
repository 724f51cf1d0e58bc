package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Mailbox is the channel type every actor (Worker, NodeActor, Coordinator)
// reads its inbox from. It carries a closed set of message variants:
// SignalMessage, Request, NodeRequest, WorkerStatus, NodeStatus,
// Heartbeat, NodeReady and PoisonPill.
type Mailbox chan any

// MessageBus routes signals and control requests to the correct worker by
// vertex id, and relays status/control traffic to nodes and the
// coordinator. It owns one sink per worker and per node plus a
// coordinator sink. Counters are atomic; there is no lock on the hot send
// path, only on the one-time registration bookkeeping.
type MessageBus[K comparable, V any] struct {
	mapper VertexToWorkerMapper[K]

	mu          sync.RWMutex
	workers     []Mailbox
	nodes       []Mailbox
	coordinator Mailbox

	sentToWorkers     atomic.Uint64
	sentToNodes       atomic.Uint64
	sentToCoordinator atomic.Uint64
	sentToOthers      atomic.Uint64
	messagesReceived  atomic.Uint64

	bootstrapSent     atomic.Uint64
	bootstrapReceived atomic.Uint64
}

// NewMessageBus creates a bus bound to mapper. Worker and node sinks are
// nil until registered; sends to an unregistered index panic, matching the
// "configuration error rejected at build time" policy for a misconfigured
// cluster topology.
func NewMessageBus[K comparable, V any](mapper VertexToWorkerMapper[K]) *MessageBus[K, V] {
	return &MessageBus[K, V]{
		mapper:  mapper,
		workers: make([]Mailbox, mapper.NumberOfWorkers()),
		nodes:   make([]Mailbox, mapper.NumberOfNodes()),
	}
}

// RegisterWorker wires worker index idx's mailbox into the bus. Counted as
// a bootstrap message on both sides, so it never contributes to the global
// message-conservation invariant.
func (b *MessageBus[K, V]) RegisterWorker(idx int, mailbox Mailbox) {
	b.mu.Lock()
	b.workers[idx] = mailbox
	b.mu.Unlock()
	b.bootstrapSent.Add(1)
	b.bootstrapReceived.Add(1)
}

// RegisterNode wires node index idx's mailbox into the bus.
func (b *MessageBus[K, V]) RegisterNode(idx int, mailbox Mailbox) {
	b.mu.Lock()
	b.nodes[idx] = mailbox
	b.mu.Unlock()
	b.bootstrapSent.Add(1)
	b.bootstrapReceived.Add(1)
}

// RegisterCoordinator wires the coordinator's mailbox into the bus.
func (b *MessageBus[K, V]) RegisterCoordinator(mailbox Mailbox) {
	b.mu.Lock()
	b.coordinator = mailbox
	b.mu.Unlock()
	b.bootstrapSent.Add(1)
	b.bootstrapReceived.Add(1)
}

// IsInitialized reports whether every worker, every node and the
// coordinator have been registered.
func (b *MessageBus[K, V]) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.coordinator == nil {
		return false
	}
	for _, w := range b.workers {
		if w == nil {
			return false
		}
	}
	for _, n := range b.nodes {
		if n == nil {
			return false
		}
	}
	return true
}

// Mapper exposes the bus's vertex-to-worker mapper.
func (b *MessageBus[K, V]) Mapper() VertexToWorkerMapper[K] { return b.mapper }

func (b *MessageBus[K, V]) workerMailbox(idx int) Mailbox {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.workers[idx]
}

func (b *MessageBus[K, V]) nodeMailbox(idx int) Mailbox {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodes[idx]
}

// SendSignal routes payload to targetID's owning worker.
func (b *MessageBus[K, V]) SendSignal(payload V, targetID K, sourceID *K) {
	idx := b.mapper.WorkerForVertex(targetID)
	mb := b.workerMailbox(idx)
	if mb == nil {
		panic(fmt.Sprintf("engine: worker %d not registered", idx))
	}
	mb <- SignalMessage[K, V]{SourceID: sourceID, TargetID: targetID, Payload: payload}
	b.sentToWorkers.Add(1)
}

// SendToWorkerForVertexID routes req to the worker owning id.
func (b *MessageBus[K, V]) SendToWorkerForVertexID(req Request[K, V], id K) {
	idx := b.mapper.WorkerForVertex(id)
	b.SendToWorkerIndex(req, idx)
}

// SendToWorkerIndex routes req directly to worker idx.
func (b *MessageBus[K, V]) SendToWorkerIndex(req Request[K, V], idx int) {
	mb := b.workerMailbox(idx)
	if mb == nil {
		panic(fmt.Sprintf("engine: worker %d not registered", idx))
	}
	mb <- req
	b.sentToWorkers.Add(1)
}

// SendToWorkers broadcasts msg to every worker. countAsReceived controls
// whether the receive side should count it towards message conservation;
// Heartbeat broadcasts pass false since heartbeats are exempted by
// construction.
func (b *MessageBus[K, V]) SendToWorkers(msg any, countAsReceived bool) {
	b.mu.RLock()
	workers := append([]Mailbox(nil), b.workers...)
	b.mu.RUnlock()
	for _, mb := range workers {
		if mb == nil {
			continue
		}
		mb <- msg
		if countAsReceived {
			b.sentToWorkers.Add(1)
		} else {
			b.bootstrapSent.Add(1)
			b.bootstrapReceived.Add(1)
		}
	}
}

// SendToNode routes msg to node idx.
func (b *MessageBus[K, V]) SendToNode(msg any, idx int) {
	mb := b.nodeMailbox(idx)
	if mb == nil {
		panic(fmt.Sprintf("engine: node %d not registered", idx))
	}
	mb <- msg
	b.sentToNodes.Add(1)
}

// SendToCoordinator routes msg to the coordinator.
func (b *MessageBus[K, V]) SendToCoordinator(msg any) {
	b.mu.RLock()
	mb := b.coordinator
	b.mu.RUnlock()
	if mb == nil {
		panic("engine: coordinator not registered")
	}
	mb <- msg
	b.sentToCoordinator.Add(1)
}

// MarkReceived is invoked by a registered actor after it finishes
// processing a non-bootstrap, non-heartbeat message, incrementing the
// bus-wide receive counter used for the conservation invariant.
func (b *MessageBus[K, V]) MarkReceived(n uint64) {
	b.messagesReceived.Add(n)
}

// BusStats is a snapshot of the bus's message accounting.
type BusStats struct {
	SentToWorkers     uint64
	SentToNodes       uint64
	SentToCoordinator uint64
	SentToOthers      uint64
	MessagesReceived  uint64
	BootstrapSent     uint64
	BootstrapReceived uint64
}

// TotalSent sums every non-bootstrap destination class.
func (s BusStats) TotalSent() uint64 {
	return s.SentToWorkers + s.SentToNodes + s.SentToCoordinator + s.SentToOthers
}

// Stats returns a snapshot of the bus's counters.
func (b *MessageBus[K, V]) Stats() BusStats {
	return BusStats{
		SentToWorkers:     b.sentToWorkers.Load(),
		SentToNodes:       b.sentToNodes.Load(),
		SentToCoordinator: b.sentToCoordinator.Load(),
		SentToOthers:      b.sentToOthers.Load(),
		MessagesReceived:  b.messagesReceived.Load(),
		BootstrapSent:     b.bootstrapSent.Load(),
		BootstrapReceived: b.bootstrapReceived.Load(),
	}
}

// GlobalInboxSize is totalSent - totalReceived across the whole system,
// used both by the coordinator's convergence check and by the throttling
// protocol's heartbeat payload.
func (b *MessageBus[K, V]) GlobalInboxSize() int64 {
	return int64(b.Stats().TotalSent()) - int64(b.messagesReceived.Load())
}
