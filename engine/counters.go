package engine

import "sync/atomic"

// Counters tracks per-worker operation counts. All fields are accessed via
// sync/atomic so a WorkerStatus snapshot can be read from the Coordinator's
// goroutine while the owning Worker keeps incrementing them, mirroring the
// atomic bookkeeping in the frontier queue this design is grounded on.
type Counters struct {
	MessagesReceived          atomic.Uint64
	MessagesSent              atomic.Uint64
	SignalOperationsExecuted  atomic.Uint64
	CollectOperationsExecuted atomic.Uint64
	VerticesAdded             atomic.Uint64
	VerticesRemoved           atomic.Uint64
	EdgesAdded                atomic.Uint64
	EdgesRemoved              atomic.Uint64
	SignalSteps               atomic.Uint64
	CollectSteps              atomic.Uint64
}

// CounterSnapshot is a point-in-time, non-atomic copy of Counters suitable
// for logging, metrics export or test assertions.
type CounterSnapshot struct {
	MessagesReceived          uint64
	MessagesSent              uint64
	SignalOperationsExecuted  uint64
	CollectOperationsExecuted uint64
	VerticesAdded             uint64
	VerticesRemoved           uint64
	EdgesAdded                uint64
	EdgesRemoved              uint64
	SignalSteps               uint64
	CollectSteps              uint64
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		MessagesReceived:          c.MessagesReceived.Load(),
		MessagesSent:              c.MessagesSent.Load(),
		SignalOperationsExecuted:  c.SignalOperationsExecuted.Load(),
		CollectOperationsExecuted: c.CollectOperationsExecuted.Load(),
		VerticesAdded:             c.VerticesAdded.Load(),
		VerticesRemoved:           c.VerticesRemoved.Load(),
		EdgesAdded:                c.EdgesAdded.Load(),
		EdgesRemoved:              c.EdgesRemoved.Load(),
		SignalSteps:               c.SignalSteps.Load(),
		CollectSteps:              c.CollectSteps.Load(),
	}
}
