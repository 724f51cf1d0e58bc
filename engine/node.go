package engine

import (
	"context"

	"github.com/transcendent-ai-labs/signal-collect/emit"
)

// NodeActor co-hosts multiple Workers on one machine and batches their
// WorkerStatus updates: nothing is forwarded while any co-hosted worker is
// busy; once all of them are idle, every not-yet-forwarded WorkerStatus is
// sent to the Coordinator, followed by one NodeStatus.
type NodeActor[K comparable, V any] struct {
	ID      int
	inbox   Mailbox
	bus     *MessageBus[K, V]
	logger  emit.Logger
	workers []int // global worker indices hosted on this node
	readyCh chan<- NodeReady

	workerStatus         []WorkerStatus
	isWorkerIdle         []bool
	forwardedToCoord     []bool
	numberOfIdleWorkers  int
	receivedMessageCount uint64
}

// NodeConfig configures a new NodeActor.
type NodeConfig[K comparable, V any] struct {
	ID            int
	Bus           *MessageBus[K, V]
	Logger        emit.Logger
	Workers       []int
	InboxCapacity int

	// ReadyCh, if non-nil, receives a NodeReady the moment Run's event loop
	// starts, for a deploy.Provisioner's start-ordering handshake.
	ReadyCh chan<- NodeReady
}

// NewNodeActor builds a NodeActor hosting the given global worker indices.
func NewNodeActor[K comparable, V any](cfg NodeConfig[K, V]) *NodeActor[K, V] {
	if cfg.Logger == nil {
		cfg.Logger = emit.NopLogger{}
	}
	if cfg.InboxCapacity <= 0 {
		cfg.InboxCapacity = 1024
	}
	n := len(cfg.Workers)
	return &NodeActor[K, V]{
		ID:               cfg.ID,
		inbox:            make(Mailbox, cfg.InboxCapacity),
		bus:              cfg.Bus,
		logger:           cfg.Logger,
		workers:          cfg.Workers,
		readyCh:          cfg.ReadyCh,
		workerStatus:     make([]WorkerStatus, n),
		isWorkerIdle:     make([]bool, n),
		forwardedToCoord: make([]bool, n),
	}
}

// Inbox returns the node's mailbox, to be registered with the MessageBus.
func (n *NodeActor[K, V]) Inbox() Mailbox { return n.inbox }

func (n *NodeActor[K, V]) localIndex(workerID int) int {
	for i, id := range n.workers {
		if id == workerID {
			return i
		}
	}
	return -1
}

// Run is the node's event loop. It reports a NodeReady handshake before
// processing its first message, if ReadyCh was configured.
func (n *NodeActor[K, V]) Run(ctx context.Context) {
	if n.readyCh != nil {
		select {
		case n.readyCh <- NodeReady{NodeID: n.ID}:
		case <-ctx.Done():
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-n.inbox:
			if !ok {
				return
			}
			if _, isPoison := msg.(PoisonPill); isPoison {
				return
			}
			n.handle(msg)
		}
	}
}

func (n *NodeActor[K, V]) handle(msg any) {
	switch m := msg.(type) {
	case WorkerStatus:
		n.onWorkerStatus(m)
		n.receivedMessageCount++
	case Heartbeat:
		// Heartbeats are exempted from the conservation invariant by
		// construction: neither side counts them as received.
		n.emitNodeStatus()
	case NodeRequest[K, V]:
		result := m.Command(n)
		if m.Reply {
			m.replyTo <- result
		} else {
			n.receivedMessageCount++
		}
	default:
		n.logger.Warning("unknown message type at node", "nodeID", n.ID)
	}
}

func (n *NodeActor[K, V]) onWorkerStatus(status WorkerStatus) {
	idx := n.localIndex(status.WorkerID)
	if idx < 0 {
		return
	}
	wasIdle := n.isWorkerIdle[idx]
	n.workerStatus[idx] = status
	n.isWorkerIdle[idx] = status.IsIdle
	switch {
	case status.IsIdle && !wasIdle:
		n.numberOfIdleWorkers++
	case !status.IsIdle && wasIdle:
		n.numberOfIdleWorkers--
		// A worker became busy again: any previously forwarded idle
		// snapshot is now stale.
		n.forwardedToCoord[idx] = false
	}

	if n.numberOfIdleWorkers == len(n.workers) {
		for i, st := range n.workerStatus {
			if !n.forwardedToCoord[i] {
				n.bus.SendToCoordinator(st)
				n.forwardedToCoord[i] = true
			}
		}
		n.emitNodeStatus()
	}
}

func (n *NodeActor[K, V]) emitNodeStatus() {
	stats := n.bus.Stats()
	n.bus.SendToCoordinator(NodeStatus{
		NodeID:           n.ID,
		Sent:             SentMessagesStats{ToWorkers: stats.SentToWorkers, ToNodes: stats.SentToNodes, ToCoordinator: stats.SentToCoordinator, ToOthers: stats.SentToOthers},
		MessagesReceived: n.receivedMessageCount,
	})
}
