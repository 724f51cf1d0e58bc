package emit

// Event is an observability event emitted during execution, independent
// of the leveled Logger above: it is consumed by tracing/metrics backends
// rather than printed, grounded on the teacher's graph/emit.Event.
type Event struct {
	RunID  string
	NodeID string
	Step   int
	Msg    string
	Meta   map[string]any
}

// Emitter receives observability events from a running graph. The
// console/status-website builder option and any tracing backend consume
// events through this interface, which is deliberately separate from
// Logger so a builder can wire a verbose Logger and a sampled Emitter (or
// vice versa) independently.
type Emitter interface {
	Emit(event Event)
}

// NullEmitter discards every event.
type NullEmitter struct{}

func (NullEmitter) Emit(Event) {}
