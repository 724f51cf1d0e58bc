package engine

import "time"

// SignalMessage carries one signal value from an (optional) source vertex
// to a target vertex. Signals are values, not references: they round-trip
// through the MessageBus intact.
type SignalMessage[K comparable, V any] struct {
	SourceID *K
	TargetID K
	EdgeID   string
	Payload  V
}

// Request is a control message carrying a command to be evaluated on the
// receiving Worker or NodeActor. If Reply is true the receiver sends the
// command's result back on replyTo.
//
// Per the Open Question resolved in SPEC_FULL.md §9, every mutation
// request the engine itself constructs (addIncomingEdge, outgoing-edge
// removal propagation) sets Reply to false and relies on eventual
// convergence rather than a round trip.
type Request[K comparable, V any] struct {
	Command func(*Worker[K, V]) any
	Reply   bool
	replyTo chan any
}

// NewRequest builds a fire-and-forget request.
func NewRequest[K comparable, V any](cmd func(*Worker[K, V]) any) Request[K, V] {
	return Request[K, V]{Command: cmd}
}

// NewReplyRequest builds a request whose result is delivered on the
// returned channel.
func NewReplyRequest[K comparable, V any](cmd func(*Worker[K, V]) any) (Request[K, V], chan any) {
	reply := make(chan any, 1)
	return Request[K, V]{Command: cmd, Reply: true, replyTo: reply}, reply
}

// NodeRequest is the NodeActor analogue of Request: a command evaluated
// against a *NodeActor rather than a *Worker.
type NodeRequest[K comparable, V any] struct {
	Command func(*NodeActor[K, V]) any
	Reply   bool
	replyTo chan any
}

// NewNodeReplyRequest builds a NodeRequest whose result is delivered on the
// returned channel.
func NewNodeReplyRequest[K comparable, V any](cmd func(*NodeActor[K, V]) any) (NodeRequest[K, V], chan any) {
	reply := make(chan any, 1)
	return NodeRequest[K, V]{Command: cmd, Reply: true, replyTo: reply}, reply
}

// Heartbeat is broadcast by the Coordinator to every Worker at
// HeartbeatInterval. Its GlobalInboxSize payload drives the throttling
// protocol (see ThrottleGate).
type Heartbeat struct {
	Timestamp       time.Time
	GlobalInboxSize int64
}

// NodeReady is sent by a NodeActor to the configured Provisioner on
// startup, per the node registration protocol in SPEC_FULL.md §6.
type NodeReady struct {
	NodeID int
}

// PoisonPill causes a Worker or NodeActor to run its cleanup hook and exit
// its event loop. There is no per-vertex cancellation.
type PoisonPill struct{}
