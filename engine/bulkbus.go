package engine

import "sync"

// BulkMessageBus batches outgoing signals per destination worker and
// flushes once a destination's buffer reaches flushSize, amortizing
// cross-node overhead for chatty algorithms. The at-most-once delivery
// contract of the wrapped MessageBus is unchanged: batching only delays
// when a signal is handed to the bus, never whether it is.
//
// Grounded on the buffering idiom in the teacher's BufferedEmitter, applied
// here to outbound signal traffic instead of observability events.
type BulkMessageBus[K comparable, V any] struct {
	inner     *MessageBus[K, V]
	flushSize int

	mu      sync.Mutex
	pending map[int][]SignalMessage[K, V]
}

// NewBulkMessageBus wraps bus with per-destination batching. flushSize
// must be >= 1; a value of 1 degenerates to unbatched delivery.
func NewBulkMessageBus[K comparable, V any](bus *MessageBus[K, V], flushSize int) *BulkMessageBus[K, V] {
	if flushSize < 1 {
		flushSize = 1
	}
	return &BulkMessageBus[K, V]{
		inner:     bus,
		flushSize: flushSize,
		pending:   make(map[int][]SignalMessage[K, V]),
	}
}

// SendSignal buffers payload for targetID's owning worker, flushing that
// destination's batch once it reaches flushSize.
func (b *BulkMessageBus[K, V]) SendSignal(payload V, targetID K, sourceID *K) {
	idx := b.inner.mapper.WorkerForVertex(targetID)
	msg := SignalMessage[K, V]{SourceID: sourceID, TargetID: targetID, Payload: payload}

	b.mu.Lock()
	b.pending[idx] = append(b.pending[idx], msg)
	batch := b.pending[idx]
	shouldFlush := len(batch) >= b.flushSize
	if shouldFlush {
		delete(b.pending, idx)
	}
	b.mu.Unlock()

	if shouldFlush {
		b.flushTo(idx, batch)
	}
}

func (b *BulkMessageBus[K, V]) flushTo(idx int, batch []SignalMessage[K, V]) {
	for _, msg := range batch {
		b.inner.SendToWorkerIndex(Request[K, V]{Command: deliverSignalCommand(msg)}, idx)
	}
}

// deliverSignalCommand adapts a buffered SignalMessage into the Request
// form the underlying bus transports, since the wrapped MessageBus only
// exposes per-vertex signal/worker-index sends, not raw enqueue.
func deliverSignalCommand[K comparable, V any](msg SignalMessage[K, V]) func(*Worker[K, V]) any {
	return func(w *Worker[K, V]) any {
		w.deliverSignal(msg)
		return nil
	}
}

// Flush forces delivery of every buffered signal regardless of batch
// fullness, e.g. before the coordinator waits for idleness.
func (b *BulkMessageBus[K, V]) Flush() {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[int][]SignalMessage[K, V])
	b.mu.Unlock()

	for idx, batch := range pending {
		b.flushTo(idx, batch)
	}
}
