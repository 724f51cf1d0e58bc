package engine

// signalQueue is the toSignal work-scheduling structure: a set of vertex
// ids awaiting a signal step, each appearing at most once, processed in
// insertion order for deterministic tests.
type signalQueue[K comparable] struct {
	order   []K
	present map[K]struct{}
}

func newSignalQueue[K comparable]() *signalQueue[K] {
	return &signalQueue[K]{present: make(map[K]struct{})}
}

func (q *signalQueue[K]) Add(id K) {
	if _, ok := q.present[id]; ok {
		return
	}
	q.present[id] = struct{}{}
	q.order = append(q.order, id)
}

func (q *signalQueue[K]) Remove(id K) {
	if _, ok := q.present[id]; !ok {
		return
	}
	delete(q.present, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *signalQueue[K]) IsEmpty() bool { return len(q.order) == 0 }
func (q *signalQueue[K]) Len() int      { return len(q.order) }

// PopFront removes and returns the oldest scheduled id, for the
// asynchronous worker loop's cooperative one-step-at-a-time draining.
func (q *signalQueue[K]) PopFront() (K, bool) {
	var zero K
	if len(q.order) == 0 {
		return zero, false
	}
	id := q.order[0]
	q.order = q.order[1:]
	delete(q.present, id)
	return id, true
}

// DrainAll removes every scheduled id and invokes f for each, in insertion
// order. Used by the synchronous signalStep.
func (q *signalQueue[K]) DrainAll(f func(K)) {
	ids := q.order
	q.order = nil
	q.present = make(map[K]struct{})
	for _, id := range ids {
		f(id)
	}
}

// collectQueue is the toCollect work-scheduling structure: a mapping from
// vertex id to its buffered, not-yet-collected signals.
type collectQueue[K comparable, V any] struct {
	order    []K
	buffered map[K][]V
}

func newCollectQueue[K comparable, V any]() *collectQueue[K, V] {
	return &collectQueue[K, V]{buffered: make(map[K][]V)}
}

func (q *collectQueue[K, V]) AddSignal(targetID K, payload V) {
	if _, ok := q.buffered[targetID]; !ok {
		q.order = append(q.order, targetID)
	}
	q.buffered[targetID] = append(q.buffered[targetID], payload)
}

// AddVertex marks id for collection with an empty signal list, used when
// edge topology changes warrant re-evaluation even without a new signal.
func (q *collectQueue[K, V]) AddVertex(id K) {
	if _, ok := q.buffered[id]; !ok {
		q.order = append(q.order, id)
		q.buffered[id] = nil
	}
}

func (q *collectQueue[K, V]) Remove(id K) {
	if _, ok := q.buffered[id]; !ok {
		return
	}
	delete(q.buffered, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *collectQueue[K, V]) IsEmpty() bool { return len(q.order) == 0 }
func (q *collectQueue[K, V]) Len() int      { return len(q.order) }

// PopFront removes and returns the oldest buffered entry.
func (q *collectQueue[K, V]) PopFront() (K, []V, bool) {
	var zero K
	if len(q.order) == 0 {
		return zero, nil, false
	}
	id := q.order[0]
	q.order = q.order[1:]
	signals := q.buffered[id]
	delete(q.buffered, id)
	return id, signals, true
}

// DrainAll repeatedly pops and invokes f until the queue is empty or
// breakCondition reports true. breakCondition is re-checked between every
// entry so a caller can yield back to message processing promptly; pass
// nil to drain unconditionally (Worker.CollectStep does; the Worker's
// mailbox loop pops one entry at a time with PopFront instead).
func (q *collectQueue[K, V]) DrainAll(breakCondition func() bool, f func(id K, signals []V)) {
	for len(q.order) > 0 {
		if breakCondition != nil && breakCondition() {
			return
		}
		id, signals, _ := q.PopFront()
		f(id, signals)
	}
}

// VertexStore is the per-worker keyed storage of vertices plus the
// toSignal/toCollect work-scheduling structures. It is accessed
// single-threadedly by its owning Worker; no internal locking is
// performed.
type VertexStore[K comparable, V any] struct {
	vertices  map[K]Vertex[K, V]
	incoming  map[K][]Edge[K]
	toSignal  *signalQueue[K]
	toCollect *collectQueue[K, V]

	// onUpdate is the updateStateOfVertex hook. It is a no-op for this
	// in-memory store; an out-of-core storage implementation can replace
	// it to persist post-mutation state.
	onUpdate func(Vertex[K, V])
}

// NewVertexStore creates an empty, in-memory VertexStore.
func NewVertexStore[K comparable, V any]() *VertexStore[K, V] {
	return &VertexStore[K, V]{
		vertices:  make(map[K]Vertex[K, V]),
		incoming:  make(map[K][]Edge[K]),
		toSignal:  newSignalQueue[K](),
		toCollect: newCollectQueue[K, V](),
		onUpdate:  func(Vertex[K, V]) {},
	}
}

// SetUpdateHook installs a custom updateStateOfVertex implementation,
// e.g. for an out-of-core store that must persist the vertex after every
// mutation.
func (s *VertexStore[K, V]) SetUpdateHook(f func(Vertex[K, V])) {
	if f == nil {
		f = func(Vertex[K, V]) {}
	}
	s.onUpdate = f
}

// Put inserts v if absent. Returns false if a vertex with the same id is
// already present.
func (s *VertexStore[K, V]) Put(v Vertex[K, V]) bool {
	id := v.ID()
	if _, exists := s.vertices[id]; exists {
		return false
	}
	s.vertices[id] = v
	return true
}

// Get returns the vertex with the given id, if present.
func (s *VertexStore[K, V]) Get(id K) (Vertex[K, V], bool) {
	v, ok := s.vertices[id]
	return v, ok
}

// Remove deletes the vertex and any scheduling/incoming-edge state for id.
func (s *VertexStore[K, V]) Remove(id K) {
	delete(s.vertices, id)
	delete(s.incoming, id)
	s.toSignal.Remove(id)
	s.toCollect.Remove(id)
}

// UpdateStateOfVertex invokes the updateStateOfVertex hook.
func (s *VertexStore[K, V]) UpdateStateOfVertex(v Vertex[K, V]) {
	s.onUpdate(v)
}

// Foreach iterates all owned vertices. Iteration order over the
// underlying map is not deterministic; callers needing determinism should
// use toSignal/toCollect ordering instead.
func (s *VertexStore[K, V]) Foreach(f func(Vertex[K, V])) {
	for _, v := range s.vertices {
		f(v)
	}
}

// Size returns the number of vertices currently owned by this store.
func (s *VertexStore[K, V]) Size() int { return len(s.vertices) }

// AddIncomingEdge records e at the target worker's incoming-edge index.
func (s *VertexStore[K, V]) AddIncomingEdge(e Edge[K]) {
	s.incoming[e.TargetID] = append(s.incoming[e.TargetID], e)
}

// RemoveIncomingEdge deletes the recorded incoming edge from sourceID to
// targetID, if any.
func (s *VertexStore[K, V]) RemoveIncomingEdge(sourceID, targetID K) {
	edges := s.incoming[targetID]
	for i, e := range edges {
		if e.SourceID == sourceID {
			s.incoming[targetID] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

// IncomingEdges returns the incoming edges recorded for id.
func (s *VertexStore[K, V]) IncomingEdges(id K) []Edge[K] {
	return s.incoming[id]
}

// CleanUp releases any resources held by the store. It is a guaranteed-
// release hook called on every exit path of the owning Worker, including
// crash paths; the in-memory store has nothing to release.
func (s *VertexStore[K, V]) CleanUp() {}
