package engine

import (
	"time"

	"github.com/transcendent-ai-labs/signal-collect/emit"
	"github.com/transcendent-ai-labs/signal-collect/scmetrics"
	"github.com/transcendent-ai-labs/signal-collect/scstore"
	"github.com/transcendent-ai-labs/signal-collect/sctrace"
)

// ExecutionMode selects how the Coordinator drives Workers, per
// spec.md §6.
type ExecutionMode int

const (
	Synchronous ExecutionMode = iota
	OptimizedAsynchronous
	PureAsynchronous
	ContinuousAsynchronous
	Interactive
)

func (m ExecutionMode) String() string {
	switch m {
	case Synchronous:
		return "Synchronous"
	case OptimizedAsynchronous:
		return "OptimizedAsynchronous"
	case PureAsynchronous:
		return "PureAsynchronous"
	case ContinuousAsynchronous:
		return "ContinuousAsynchronous"
	case Interactive:
		return "Interactive"
	default:
		return "Unknown"
	}
}

// GlobalTerminationCondition is polled by the Coordinator between
// supersteps (Synchronous) or on every idle check (asynchronous modes); a
// true result ends the run with TerminationReason GlobalConstraintMet.
type GlobalTerminationCondition func() bool

// ExecutionConfig configures one Coordinator.Execute call, per
// spec.md §6. Execute does not forward SignalThreshold or CollectThreshold
// to the Workers: every Worker built by NewGraph gates signal steps at
// 0.001 and collect steps at 0.0, whatever these two fields hold.
type ExecutionConfig struct {
	Mode                       ExecutionMode
	SignalThreshold            float64
	CollectThreshold           float64
	TimeLimit                  time.Duration // zero means unlimited
	StepsLimit                 int           // zero means unlimited
	GlobalTerminationCondition GlobalTerminationCondition

	// RunID identifies this execution for RunRecord persistence. A blank
	// RunID is replaced with a freshly generated UUID.
	RunID string
}

// DefaultExecutionConfig returns the spec-mandated defaults: Synchronous
// mode, signalThreshold 0.001, collectThreshold 0.0, no limits.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Mode:             Synchronous,
		SignalThreshold:  0.001,
		CollectThreshold: 0.0,
	}
}

// BuilderConfig is the graph builder configuration enumerated in
// spec.md §6. Concrete algorithms, the status console and cluster
// provisioning plug into the engine only through this struct and the
// GraphEditor/Vertex interfaces.
type BuilderConfig[K comparable] struct {
	NumberOfWorkers int
	WorkersPerNode  int

	ConsoleEnabled bool
	LoggingLevel   emit.Level
	Logger         func(emit.LogMessage)
	Metrics        *scmetrics.Metrics
	Store          scstore.Store
	Tracer         *sctrace.Tracer

	MapperFactory func(numberOfWorkers, workersPerNode int) VertexToWorkerMapper[K]

	// StatusUpdateIntervalMillis makes each Worker report WorkerStatus on
	// this cadence in addition to every Idle/Running state-change edge
	// (spec.md §3: "sent on state change or on heartbeat interval"). 0
	// disables the interval report entirely; there is no implicit "never"
	// sentinel (resolved Open Question, SPEC_FULL.md §9).
	StatusUpdateIntervalMillis int
	HeartbeatInterval          time.Duration

	ThrottleInboxThresholdPerWorker    int64
	ThrottleWorkerQueueThresholdMillis int64
	BulkSignalFlushSize                int
	WorkerInboxCapacity                int
	NodeInboxCapacity                  int
}

// DefaultBuilderConfig returns sensible defaults for a single-node,
// single-worker graph: one worker, heartbeats every 200ms, no throttling,
// unbatched signal delivery.
func DefaultBuilderConfig[K comparable]() BuilderConfig[K] {
	return BuilderConfig[K]{
		NumberOfWorkers:     1,
		WorkersPerNode:      1,
		LoggingLevel:        emit.Warning,
		HeartbeatInterval:   200 * time.Millisecond,
		BulkSignalFlushSize: 1,
		WorkerInboxCapacity: 1024,
		NodeInboxCapacity:   1024,
		MapperFactory: func(numberOfWorkers, workersPerNode int) VertexToWorkerMapper[K] {
			return NewHashMapper[K](numberOfWorkers, workersPerNode)
		},
	}
}

// Validate rejects configurations the spec calls out as build-time errors
// (spec.md §7): numberOfWorkers == 0.
func (c BuilderConfig[K]) Validate() error {
	if c.NumberOfWorkers <= 0 {
		return ErrNoWorkers
	}
	return nil
}
