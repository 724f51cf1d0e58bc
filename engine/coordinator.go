package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/transcendent-ai-labs/signal-collect/emit"
	"github.com/transcendent-ai-labs/signal-collect/scmetrics"
	"github.com/transcendent-ai-labs/signal-collect/scstore"
	"github.com/transcendent-ai-labs/signal-collect/sctrace"
)

// RunSummary is returned by Coordinator.Execute once a run ends.
type RunSummary struct {
	RunID        string
	Reason       TerminationReason
	Supersteps   int
	Duration     time.Duration
	BusStats     BusStats
	WorkerStatus []WorkerStatus
}

// Coordinator drives global execution and detects convergence by the
// message-conservation invariant, per spec.md §4.5.
type Coordinator[K comparable, V any] struct {
	bus     *MessageBus[K, V]
	workers []*Worker[K, V] // only populated for in-process deployments
	logger  emit.Logger
	metrics *scmetrics.Metrics
	store   scstore.Store
	tracer  *sctrace.Tracer

	heartbeatInterval time.Duration

	mu           sync.Mutex
	workerStatus []*WorkerStatus
	onIdle       []func()
	shutdown     bool
}

// CoordinatorConfig configures a new Coordinator.
type CoordinatorConfig[K comparable, V any] struct {
	Bus               *MessageBus[K, V]
	NumberOfWorkers   int
	Workers           []*Worker[K, V]
	Logger            emit.Logger
	Metrics           *scmetrics.Metrics
	Store             scstore.Store
	Tracer            *sctrace.Tracer
	HeartbeatInterval time.Duration
}

// NewCoordinator builds a Coordinator with every workerStatus slot
// initially nil, as mandated by spec.md §4.5.
func NewCoordinator[K comparable, V any](cfg CoordinatorConfig[K, V]) *Coordinator[K, V] {
	if cfg.Logger == nil {
		cfg.Logger = emit.NopLogger{}
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 200 * time.Millisecond
	}
	return &Coordinator[K, V]{
		bus:               cfg.Bus,
		workers:           cfg.Workers,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		store:             cfg.Store,
		tracer:            cfg.Tracer,
		heartbeatInterval: cfg.HeartbeatInterval,
		workerStatus:      make([]*WorkerStatus, cfg.NumberOfWorkers),
	}
}

// Listen is the coordinator's event loop: it handles every WorkerStatus/
// NodeStatus update the MessageBus delivers to inbox until ctx is
// cancelled or inbox is closed.
func (c *Coordinator[K, V]) Listen(ctx context.Context, inbox Mailbox) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbox:
			if !ok {
				return
			}
			c.handle(msg)
		}
	}
}

func (c *Coordinator[K, V]) handle(msg any) {
	switch m := msg.(type) {
	case WorkerStatus:
		c.onWorkerStatus(m)
	case NodeStatus:
		// Node-level aggregates are informative only; per-worker status is
		// still the source of truth for the conservation invariant.
	default:
		c.logger.Warning("unknown message type at coordinator", "type", fmt.Sprintf("%T", msg))
	}
	c.bus.MarkReceived(1)
}

func (c *Coordinator[K, V]) onWorkerStatus(status WorkerStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status.WorkerID < 0 || status.WorkerID >= len(c.workerStatus) {
		return
	}
	prev := c.workerStatus[status.WorkerID]
	if prev != nil && !status.Newer(*prev) {
		return
	}
	s := status
	c.workerStatus[status.WorkerID] = &s

	if c.isIdleLocked() {
		callbacks := c.onIdle
		c.onIdle = nil
		c.mu.Unlock()
		for _, cb := range callbacks {
			cb()
		}
		c.mu.Lock()
	}
}

// initializationMessages accounts for the mutual registration fanout per
// spec.md §4.5: numberOfWorkers * (numberOfWorkers + 2).
func (c *Coordinator[K, V]) initializationMessages() uint64 {
	n := uint64(len(c.workerStatus))
	return n * (n + 2)
}

func (c *Coordinator[K, V]) totalsLocked() (sent, received uint64, allReported bool) {
	allReported = true
	for _, st := range c.workerStatus {
		if st == nil {
			allReported = false
			continue
		}
		sent += st.MessagesSent
		received += st.MessagesReceived
	}
	sent += uint64(len(c.workerStatus)) + c.initializationMessages()
	return sent, received, allReported
}

func (c *Coordinator[K, V]) isIdleLocked() bool {
	for _, st := range c.workerStatus {
		if st == nil || !st.IsIdle {
			return false
		}
	}
	sent, received, allReported := c.totalsLocked()
	return allReported && sent == received
}

// IsIdle reports whether every worker has reported idle and total sent
// equals total received — the global convergence condition from
// spec.md §3.
func (c *Coordinator[K, V]) IsIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isIdleLocked()
}

// AwaitIdle blocks until the system converges or ctx is cancelled.
func (c *Coordinator[K, V]) AwaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	c.mu.Lock()
	if c.isIdleLocked() {
		c.mu.Unlock()
		return nil
	}
	c.onIdle = append(c.onIdle, func() { close(done) })
	c.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator[K, V]) broadcastHeartbeat() {
	size := c.bus.GlobalInboxSize()
	hb := Heartbeat{Timestamp: time.Now(), GlobalInboxSize: size}
	c.bus.SendToWorkers(hb, false)
	c.tracer.RecordHeartbeat(context.Background(), size)

	if c.metrics != nil {
		c.metrics.SetGlobalInboxSize(size)
		c.mu.Lock()
		idle := 0
		for _, st := range c.workerStatus {
			if st != nil && st.IsIdle {
				idle++
			}
		}
		c.mu.Unlock()
		c.metrics.SetIdleWorkers(idle)
	}
}

// runHeartbeatLoop broadcasts a heartbeat every heartbeatInterval until
// ctx is cancelled. It is the coordinator's only periodic activity besides
// reacting to WorkerStatus updates.
func (c *Coordinator[K, V]) runHeartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.broadcastHeartbeat()
		}
	}
}

// Execute drives the graph under cfg until it terminates, returning a
// RunSummary with the reason and final statistics.
func (c *Coordinator[K, V]) Execute(ctx context.Context, cfg ExecutionConfig) (RunSummary, error) {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return RunSummary{}, ErrShutdown
	}
	c.mu.Unlock()
	if !c.bus.IsInitialized() {
		return RunSummary{}, ErrNotInitialized
	}

	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	runCtxTraced, endRunSpan := c.tracer.StartRun(ctx, cfg.RunID, cfg.Mode.String())
	ctx = runCtxTraced

	start := time.Now()
	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.TimeLimit > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.TimeLimit)
		defer cancel()
	}

	var reason TerminationReason
	var supersteps int
	var err error
	defer func() { endRunSpan(err) }()

	switch cfg.Mode {
	case Synchronous, OptimizedAsynchronous:
		supersteps, reason, err = c.runSynchronous(runCtx, cfg)
	default:
		reason, err = c.runAsynchronous(runCtx, cfg)
	}

	finished := time.Now()
	summary := RunSummary{
		RunID:      cfg.RunID,
		Reason:     reason,
		Supersteps: supersteps,
		Duration:   finished.Sub(start),
		BusStats:   c.bus.Stats(),
	}
	c.mu.Lock()
	for _, st := range c.workerStatus {
		if st != nil {
			summary.WorkerStatus = append(summary.WorkerStatus, *st)
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		saveErr := c.store.SaveRun(context.Background(), scstore.RunRecord{
			RunID:        cfg.RunID,
			StartedAt:    start,
			FinishedAt:   finished,
			Reason:       reason.String(),
			Supersteps:   supersteps,
			MessagesSent: summary.BusStats.TotalSent(),
			MessagesRecv: summary.BusStats.MessagesReceived,
		})
		if saveErr != nil {
			c.logger.Warning("failed to persist run record", "runID", cfg.RunID, "error", saveErr)
		}
	}

	return summary, err
}

// runSynchronous implements the protocol in spec.md §4.5: repeat
// signalStep on every worker, then collectStep on every worker, until
// every worker reports an empty toSignal and no pending collects.
func (c *Coordinator[K, V]) runSynchronous(ctx context.Context, cfg ExecutionConfig) (int, TerminationReason, error) {
	numberOfWorkers := len(c.workerStatus)
	supersteps := 0
	for {
		if cfg.StepsLimit > 0 && supersteps >= cfg.StepsLimit {
			return supersteps, StepsLimitReached, nil
		}
		if cfg.GlobalTerminationCondition != nil && cfg.GlobalTerminationCondition() {
			return supersteps, GlobalConstraintMet, nil
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return supersteps, TimeLimitReached, nil
			}
			return supersteps, Paused, ctx.Err()
		default:
		}

		stepStart := time.Now()
		stepCtx, endStepSpan := c.tracer.StartSuperstep(ctx, cfg.RunID, supersteps)

		if err := c.broadcastAndWait(stepCtx, numberOfWorkers, func(w *Worker[K, V]) any {
			w.SignalStep()
			return nil
		}); err != nil {
			endStepSpan(err)
			return supersteps, Error, err
		}

		results, err := c.broadcastAndCollect(stepCtx, numberOfWorkers, func(w *Worker[K, V]) any {
			return w.CollectStep()
		})
		if err != nil {
			endStepSpan(err)
			return supersteps, Error, err
		}
		endStepSpan(nil)
		supersteps++
		if c.metrics != nil {
			c.metrics.ObserveSuperstepLatency(cfg.Mode.String(), time.Since(stepStart))
		}

		allEmpty := true
		for _, r := range results {
			if empty, ok := r.(bool); !ok || !empty {
				allEmpty = false
			}
		}
		if allEmpty {
			return supersteps, Converged, nil
		}
	}
}

// broadcastAndWait sends cmd as a reply-requiring Request to every worker
// and blocks until all replies arrive, using an errgroup the way the
// teacher's engine awaits concurrent node execution.
func (c *Coordinator[K, V]) broadcastAndWait(ctx context.Context, numberOfWorkers int, cmd func(*Worker[K, V]) any) error {
	_, err := c.broadcastAndCollect(ctx, numberOfWorkers, cmd)
	return err
}

func (c *Coordinator[K, V]) broadcastAndCollect(ctx context.Context, numberOfWorkers int, cmd func(*Worker[K, V]) any) ([]any, error) {
	ctx, endSpan := c.tracer.StartRequest(ctx, "broadcastAndCollect", numberOfWorkers)
	results := make([]any, numberOfWorkers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numberOfWorkers; i++ {
		idx := i
		g.Go(func() error {
			req, reply := NewReplyRequest(cmd)
			c.bus.SendToWorkerIndex(req, idx)
			select {
			case res := <-reply:
				results[idx] = res
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	endSpan(err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// runAsynchronous lets workers run continuously (they were already
// started in Running state) and simply waits for global idleness, a
// constraint, or a deadline, polling via the heartbeat-driven WorkerStatus
// stream rather than driving steps itself.
func (c *Coordinator[K, V]) runAsynchronous(ctx context.Context, cfg ExecutionConfig) (TerminationReason, error) {
	pollInterval := c.heartbeatInterval
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if c.IsIdle() {
			return Converged, nil
		}
		if cfg.GlobalTerminationCondition != nil && cfg.GlobalTerminationCondition() {
			return GlobalConstraintMet, nil
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return TimeLimitReached, nil
			}
			return Paused, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown marks the coordinator unusable for further Execute calls and
// broadcasts a PoisonPill to every worker so they release their
// VertexStore and exit.
func (c *Coordinator[K, V]) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
	c.bus.SendToWorkers(PoisonPill{}, false)
}

// aggregateAcrossWorkers folds op across every worker's shard and combines
// the partial results with op.Aggregate, round-tripping through the
// MessageBus exactly like any other coordinator-to-worker Request. It is a
// package-level function, not a Coordinator method, because Go forbids a
// method from introducing type parameters beyond its receiver's.
func aggregateAcrossWorkers[K comparable, V any, R any](c *Coordinator[K, V], op AggregationOperation[K, V, R]) (R, error) {
	numberOfWorkers := len(c.workerStatus)
	results, err := c.broadcastAndCollect(context.Background(), numberOfWorkers, func(w *Worker[K, V]) any {
		return Aggregate(w, op)
	})
	acc := op.NeutralElement()
	if err != nil {
		return acc, err
	}
	for _, r := range results {
		partial, ok := r.(R)
		if !ok {
			continue
		}
		acc = op.Aggregate(acc, partial)
	}
	return acc, nil
}
