package engine

import (
	"context"
	"sync"
	"time"

	"github.com/transcendent-ai-labs/signal-collect/emit"
)

// Graph is a fully wired, single-process signal/collect cluster: one
// MessageBus, numberOfWorkers Workers grouped into nodes of workersPerNode
// each, and one Coordinator, all already running their event loops in
// background goroutines. It is the concrete result of a BuilderConfig, the
// way the teacher's engine.Run produces a live graph from an engineConfig
// built up through functional options.
type Graph[K comparable, V any] struct {
	bus         *MessageBus[K, V]
	workers     []*Worker[K, V]
	nodes       []*NodeActor[K, V]
	coordinator *Coordinator[K, V]
	throttle    *ThrottleGate
	bulk        *BulkMessageBus[K, V]
	editor      *GraphEditor[K, V]
	logger      emit.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGraph validates cfg and builds a Graph ready to accept vertices. All
// actor goroutines are started immediately, workers in the Paused state;
// NewGraph then issues Start to every worker, so each one moves to Running
// at its next mailbox checkpoint, before the first Execute call.
func NewGraph[K comparable, V any](cfg BuilderConfig[K]) (*Graph[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := loggerFrom(cfg)
	mapper := cfg.MapperFactory(cfg.NumberOfWorkers, cfg.WorkersPerNode)
	bus := NewMessageBus[K, V](mapper)

	var throttle *ThrottleGate
	if cfg.ThrottleInboxThresholdPerWorker > 0 || cfg.ThrottleWorkerQueueThresholdMillis > 0 {
		throttle = NewThrottleGate(
			cfg.ThrottleInboxThresholdPerWorker,
			time.Duration(cfg.ThrottleWorkerQueueThresholdMillis)*time.Millisecond,
			cfg.NumberOfWorkers,
		)
		throttle.SetMetrics(cfg.Metrics)
	}

	g := &Graph[K, V]{
		bus:      bus,
		throttle: throttle,
		logger:   logger,
	}

	numberOfNodes := mapper.NumberOfNodes()
	workersByNode := make([][]int, numberOfNodes)

	g.workers = make([]*Worker[K, V], cfg.NumberOfWorkers)
	for i := 0; i < cfg.NumberOfWorkers; i++ {
		nodeIdx := mapper.NodeForWorker(i)
		workersByNode[nodeIdx] = append(workersByNode[nodeIdx], i)
	}

	g.nodes = make([]*NodeActor[K, V], numberOfNodes)
	for i := 0; i < numberOfNodes; i++ {
		node := NewNodeActor[K, V](NodeConfig[K, V]{
			ID:            i,
			Bus:           bus,
			Logger:        logger,
			Workers:       workersByNode[i],
			InboxCapacity: cfg.NodeInboxCapacity,
		})
		g.nodes[i] = node
		bus.RegisterNode(i, node.Inbox())
	}

	for i := 0; i < cfg.NumberOfWorkers; i++ {
		nodeIdx := mapper.NodeForWorker(i)
		w := NewWorker[K, V](WorkerConfig[K, V]{
			ID:               i,
			Bus:              bus,
			SignalThreshold:  0.001,
			CollectThreshold: 0.0,
			Logger:           logger,
			Throttle:         throttle,
			Metrics:          cfg.Metrics,
			StatusSink:       g.nodes[nodeIdx].Inbox(),
			InboxCapacity:    cfg.WorkerInboxCapacity,
			StatusInterval:   time.Duration(cfg.StatusUpdateIntervalMillis) * time.Millisecond,
		})
		g.workers[i] = w
		bus.RegisterWorker(i, w.Inbox())
	}

	coordInbox := make(Mailbox, 1024)
	g.coordinator = NewCoordinator[K, V](CoordinatorConfig[K, V]{
		Bus:               bus,
		NumberOfWorkers:   cfg.NumberOfWorkers,
		Workers:           g.workers,
		Logger:            logger,
		Metrics:           cfg.Metrics,
		Store:             cfg.Store,
		Tracer:            cfg.Tracer,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	bus.RegisterCoordinator(coordInbox)

	if cfg.BulkSignalFlushSize > 1 {
		g.bulk = NewBulkMessageBus[K, V](bus, cfg.BulkSignalFlushSize)
	}

	g.editor = NewDriverEditor[K, V](bus, g.coordinator)

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	for _, w := range g.workers {
		g.wg.Add(1)
		go func(w *Worker[K, V]) {
			defer g.wg.Done()
			w.Run(ctx)
		}(w)
	}
	for _, n := range g.nodes {
		g.wg.Add(1)
		go func(n *NodeActor[K, V]) {
			defer g.wg.Done()
			n.Run(ctx)
		}(n)
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.coordinator.Listen(ctx, coordInbox)
	}()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.coordinator.runHeartbeatLoop(ctx)
	}()

	for _, w := range g.workers {
		w.Start()
	}

	return g, nil
}

func loggerFrom[K comparable](cfg BuilderConfig[K]) emit.Logger {
	if cfg.Logger == nil {
		return emit.NopLogger{}
	}
	return emit.NewCallbackLogger(cfg.LoggingLevel, cfg.Logger)
}

// Editor returns the driver GraphEditor used to build the initial graph and
// drive execution: AddVertex, AddEdge, Execute, AwaitIdle, Shutdown.
func (g *Graph[K, V]) Editor() *GraphEditor[K, V] { return g.editor }

// Bulk returns the Graph's BulkMessageBus, a batched signal sender, if
// BuilderConfig.BulkSignalFlushSize > 1.
// Returns nil otherwise; callers should fall back to Editor().SendSignal.
func (g *Graph[K, V]) Bulk() *BulkMessageBus[K, V] { return g.bulk }

// Coordinator exposes the underlying Coordinator for callers that need
// Aggregate or direct status inspection beyond what GraphEditor surfaces.
func (g *Graph[K, V]) Coordinator() *Coordinator[K, V] { return g.coordinator }

// Bus exposes the underlying MessageBus, mainly for tests asserting on
// BusStats.
func (g *Graph[K, V]) Bus() *MessageBus[K, V] { return g.bus }

// Shutdown stops every actor goroutine and waits for them to exit.
func (g *Graph[K, V]) Shutdown() {
	g.coordinator.Shutdown()
	g.cancel()
	g.wg.Wait()
}
